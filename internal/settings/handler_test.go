package settings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markdesk-server/internal/config"
	"markdesk-server/internal/workspace"
)

func setupSettings(t *testing.T) (http.Handler, *workspace.Registry, *config.SettingsStore) {
	t.Helper()
	store, err := config.NewSettingsStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	reg := workspace.NewRegistry()
	r := chi.NewRouter()
	NewHandler(store, reg).Routes(r)
	return r, reg, store
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func settingsBody(t *testing.T, path string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"hexo_path":    path,
		"llm_provider": "claude",
		"providers":    map[string]any{"claude": map[string]any{"model": "x"}},
	})
	require.NoError(t, err)
	return string(data)
}

func TestGetReturnsDefaults(t *testing.T) {
	h, _, _ := setupSettings(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "openai", got.LLMProvider)
	assert.Nil(t, got.HexoPath)
	assert.Contains(t, got.Providers, "deepseek")
}

func TestUpdateSetsRoot(t *testing.T) {
	h, reg, store := setupSettings(t)
	site := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(site, "source", "_posts"), 0755))

	w := post(h, settingsBody(t, site))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UpdateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, savedStatus, resp.Status)
	assert.Equal(t, site, resp.PostsPath)
	assert.True(t, resp.IsHexo)

	root, ok := reg.Get()
	assert.True(t, ok)
	assert.Equal(t, site, root)
	assert.Equal(t, "claude", store.Get().LLMProvider)
}

func TestUpdateInvalidPathClearsRoot(t *testing.T) {
	h, reg, store := setupSettings(t)
	require.NoError(t, reg.Set(t.TempDir()))

	missing := filepath.Join(t.TempDir(), "missing")
	w := post(h, settingsBody(t, missing))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid path provided: "+missing, body["detail"])

	_, ok := reg.Get()
	assert.False(t, ok, "rejected update clears the previous root")
	assert.Equal(t, missing, store.Get().WorkspacePath(), "settings are saved before validation")
}

func TestUpdateRejectsMalformedBody(t *testing.T) {
	h, _, _ := setupSettings(t)

	assert.Equal(t, http.StatusBadRequest, post(h, `{"hexo_path":`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"hexo_path":"/tmp"}`).Code)
}
