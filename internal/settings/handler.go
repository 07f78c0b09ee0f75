// Package settings serves the persisted editor settings and applies workspace root changes.
package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"markdesk-server/internal/config"
	"markdesk-server/internal/files"
	httpxmiddleware "markdesk-server/internal/httpx/middleware"
	"markdesk-server/internal/httpx/response"
	"markdesk-server/internal/logger"
	"markdesk-server/internal/workspace"
)

var log = logger.WithComponent("SETTINGS")

const savedStatus = "Configuration saved. Scanning from workspace root."

type Handler struct {
	store    *config.SettingsStore
	registry *workspace.Registry
}

func NewHandler(store *config.SettingsStore, registry *workspace.Registry) *Handler {
	return &Handler{store: store, registry: registry}
}

// UpdateResponse is returned after a successful settings update.
type UpdateResponse struct {
	Status    string `json:"status"`
	PostsPath string `json:"posts_path"`
	IsHexo    bool   `json:"is_hexo"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/config", h.Get)
	r.Post("/api/config", h.Update)
}

// Get handles GET /api/config.
func (h *Handler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, h.store.Get())
}

// Update handles POST /api/config. The settings are persisted before the new
// root is validated; a root that is not an existing directory leaves the
// workspace unset and answers 400.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if !httpxmiddleware.DecodeJSON(w, r, &settings) {
		return
	}
	if settings.LLMProvider == "" {
		response.BadRequest(w, "llm_provider is required")
		return
	}

	if err := h.store.Save(settings); err != nil {
		log.Error("Failed to save settings: %v", err)
		response.ServiceError(w, err)
		return
	}

	newPath := settings.WorkspacePath()
	if err := h.registry.Set(newPath); err != nil {
		log.Warn("Rejected workspace path %q: %v", newPath, err)
		response.BadRequest(w, "Invalid path provided: "+newPath)
		return
	}

	root, _ := h.registry.Get()
	response.JSON(w, http.StatusOK, UpdateResponse{
		Status:    savedStatus,
		PostsPath: root,
		IsHexo:    files.IsHexoSite(root),
	})
}
