package files

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"markdesk-server/internal/fsutil"
	"markdesk-server/internal/trash"
	"markdesk-server/internal/workspace"
)

func setupFilesHandler(t *testing.T) (http.Handler, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "blog")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", root, err)
	}

	reg := workspace.NewRegistry()
	if err := reg.Set(root); err != nil {
		t.Fatalf("set root: %v", err)
	}
	guard := workspace.NewGuard()
	locks := fsutil.NewLocker()
	store := trash.NewStore(reg, guard, trash.WithLocker(locks))
	svc := NewService(reg, guard, store, WithLocker(locks))

	r := chi.NewRouter()
	NewHandler(svc, store).Routes(r)
	return r, root
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHandler_PostLifecycle(t *testing.T) {
	h, root := setupFilesHandler(t)

	w := doRequest(t, h, http.MethodPost, "/api/posts/new", `{"filename":"2025-12-01-test.md"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	created := decode[map[string]string](t, w)
	if created["status"] != "File created" || created["path"] != "2025-12-01-test.md" {
		t.Fatalf("unexpected create body: %v", created)
	}

	w = doRequest(t, h, http.MethodPost, "/api/posts/2025-12-01-test.md", `{"content":"# hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(t, h, http.MethodGet, "/api/posts/2025-12-01-test.md", "")
	if got := decode[string](t, w); got != "# hi" {
		t.Fatalf("read: unexpected content %q", got)
	}

	w = doRequest(t, h, http.MethodDelete, "/api/posts/2025-12-01-test.md", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	deleted := decode[map[string]string](t, w)
	if deleted["status"] != "moved to trash" || !strings.HasSuffix(deleted["trash_path"], "/2025-12-01-test.md") {
		t.Fatalf("unexpected delete body: %v", deleted)
	}

	w = doRequest(t, h, http.MethodGet, "/api/trash", "")
	entries := decode[[]string](t, w)
	if len(entries) != 2 || entries[1] != deleted["trash_path"] {
		t.Fatalf("unexpected trash listing: %v", entries)
	}

	w = doRequest(t, h, http.MethodPost, "/api/trash/restore", `{"path":"`+deleted["trash_path"]+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("restore: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	restored := decode[map[string]string](t, w)
	if restored["status"] != "restored" || restored["path"] != "2025-12-01-test.md" {
		t.Fatalf("unexpected restore body: %v", restored)
	}

	content, err := os.ReadFile(filepath.Join(root, "2025-12-01-test.md"))
	if err != nil || string(content) != "# hi" {
		t.Fatalf("restored content mismatch: %q err=%v", content, err)
	}
}

func TestHandler_StatusMapping(t *testing.T) {
	h, root := setupFilesHandler(t)
	if err := os.WriteFile(filepath.Join(root, "exists.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"read missing", http.MethodGet, "/api/posts/missing.md", "", http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/posts/missing.md", "", http.StatusNotFound},
		{"delete folder missing", http.MethodDelete, "/api/folders/nope", "", http.StatusNotFound},
		{"create existing", http.MethodPost, "/api/posts/new", `{"filename":"exists.md"}`, http.StatusConflict},
		{"create empty", http.MethodPost, "/api/posts/new", `{"filename":""}`, http.StatusBadRequest},
		{"create bad json", http.MethodPost, "/api/posts/new", `{`, http.StatusBadRequest},
		{"create traversal", http.MethodPost, "/api/posts/new", `{"filename":"../../etc/passwd"}`, http.StatusBadRequest},
		{"save traversal", http.MethodPost, "/api/posts/..%2F..%2Fetc%2Fpasswd", `{"content":"x"}`, http.StatusBadRequest},
		{"delete traversal", http.MethodDelete, "/api/posts/..%2F..%2Fetc%2Fpasswd", "", http.StatusBadRequest},
		{"restore traversal", http.MethodPost, "/api/trash/restore", `{"path":"../../etc/passwd"}`, http.StatusBadRequest},
		{"restore missing", http.MethodPost, "/api/trash/restore", `{"path":"20250101T000000Z/x.md"}`, http.StatusNotFound},
		{"purge missing", http.MethodDelete, "/api/trash/20250101T000000Z/x.md", "", http.StatusNotFound},
		{"purge traversal", http.MethodDelete, "/api/trash/..%2F..%2Fexists.md", "", http.StatusBadRequest},
		{"move onto itself", http.MethodPost, "/api/move", `{"source":"exists.md","destination":"exists.md"}`, http.StatusBadRequest},
		{"rename bad name", http.MethodPost, "/api/rename", `{"path":"exists.md","new_name":"a/b.md"}`, http.StatusBadRequest},
		{"move traversal", http.MethodPost, "/api/move", `{"source":"exists.md","destination":"../x.md"}`, http.StatusBadRequest},
		{"create folder traversal", http.MethodPost, "/api/folders/new", `{"path":"../escaped"}`, http.StatusBadRequest},
		{"delete folder traversal", http.MethodDelete, "/api/folders/..%2F..", "", http.StatusBadRequest},
		{"rename traversal", http.MethodPost, "/api/rename", `{"path":"../../etc/passwd","new_name":"x.md"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, tt.method, tt.target, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, w.Code, w.Body.String())
			}
			if w.Code >= 400 {
				body := decode[map[string]string](t, w)
				if body["error"] == "" || body["detail"] != body["error"] {
					t.Fatalf("unexpected error body: %v", body)
				}
			}
		})
	}

	if _, err := os.Stat(filepath.Join(root, "exists.md")); err != nil {
		t.Fatalf("exists.md should be untouched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escaped")); !os.IsNotExist(err) {
		t.Fatalf("folder created outside the workspace: %v", err)
	}
}

func TestHandler_ConcurrentRestore(t *testing.T) {
	h, root := setupFilesHandler(t)
	if err := os.WriteFile(filepath.Join(root, "race.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, h, http.MethodDelete, "/api/posts/race.md", "")
	trashPath := decode[map[string]string](t, w)["trash_path"]

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = doRequest(t, h, http.MethodPost, "/api/trash/restore", `{"path":"`+trashPath+`"}`).Code
		}()
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusNotFound, http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful restore, got codes %v", codes)
	}
}

func TestHandler_EmptyTrash(t *testing.T) {
	h, root := setupFilesHandler(t)
	for _, name := range []string{"a.md", "b.md"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		doRequest(t, h, http.MethodDelete, "/api/posts/"+name, "")
	}

	w := doRequest(t, h, http.MethodDelete, "/api/trash", "")
	if w.Code != http.StatusOK || decode[map[string]string](t, w)["status"] != "trash emptied" {
		t.Fatalf("empty trash: got %d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(t, h, http.MethodGet, "/api/trash", "")
	if entries := decode[[]string](t, w); len(entries) != 0 {
		t.Fatalf("expected empty trash, got %v", entries)
	}
}
