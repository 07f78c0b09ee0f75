package files

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	httpxmiddleware "markdesk-server/internal/httpx/middleware"
	"markdesk-server/internal/httpx/response"
	"markdesk-server/internal/trash"
)

// Handler exposes the file service and the trash store over HTTP.
type Handler struct {
	service *Service
	trash   *trash.Store
}

// NewHandler creates a new file handler.
func NewHandler(service *Service, trashStore *trash.Store) *Handler {
	return &Handler{service: service, trash: trashStore}
}

type newPostRequest struct {
	Filename string `json:"filename"`
}

type folderRequest struct {
	Path string `json:"path"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type moveRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

// Routes mounts the post, folder and trash endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/posts", h.ListPosts)
	r.Post("/api/posts/new", h.CreatePost)
	r.Post("/api/posts/init", h.InitPosts)
	r.Get("/api/posts/*", h.ReadPost)
	r.Post("/api/posts/*", h.SavePost)
	r.Delete("/api/posts/*", h.DeletePost)

	r.Get("/api/folders", h.ListFolders)
	r.Post("/api/folders/new", h.CreateFolder)
	r.Delete("/api/folders/*", h.DeleteFolder)

	r.Post("/api/move", h.Move)
	r.Post("/api/rename", h.Rename)

	r.Get("/api/trash", h.ListTrash)
	r.Post("/api/trash/restore", h.RestoreTrash)
	r.Delete("/api/trash", h.EmptyTrash)
	r.Delete("/api/trash/*", h.PurgeTrash)
}

// ListPosts handles GET /api/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, posts)
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.ListFolders(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, folders)
}

// CreatePost handles POST /api/posts/new.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req newPostRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	rel, err := h.service.CreatePost(r.Context(), req.Filename)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "File created", map[string]any{"path": rel})
}

// InitPosts handles POST /api/posts/init.
func (h *Handler) InitPosts(w http.ResponseWriter, r *http.Request) {
	postsPath, err := h.service.InitPostsFolder(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "created", map[string]any{"posts_path": postsPath})
}

// ReadPost handles GET /api/posts/{path}. The body is the post text as a JSON string.
func (h *Handler) ReadPost(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.ReadPost(r.Context(), pathParam(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, content)
}

// SavePost handles POST /api/posts/{path}.
func (h *Handler) SavePost(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SavePost(r.Context(), pathParam(r), req.Content); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "File saved", nil)
}

// DeletePost handles DELETE /api/posts/{path}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	trashPath, err := h.service.DeletePost(r.Context(), pathParam(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "moved to trash", map[string]any{"trash_path": trashPath})
}

// CreateFolder handles POST /api/folders/new.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.CreateFolder(r.Context(), req.Path); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "Folder created", nil)
}

// DeleteFolder handles DELETE /api/folders/{path}.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	trashPath, err := h.service.DeleteFolder(r.Context(), pathParam(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "moved to trash", map[string]any{"trash_path": trashPath})
}

// Move handles POST /api/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	moved, err := h.service.Move(r.Context(), req.Source, req.Destination)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "moved", map[string]any{"path": moved})
}

// Rename handles POST /api/rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	renamed, err := h.service.Rename(r.Context(), req.Path, req.NewName)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "renamed", map[string]any{"path": renamed})
}

// ListTrash handles GET /api/trash.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	entries, err := h.trash.List(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// RestoreTrash handles POST /api/trash/restore.
func (h *Handler) RestoreTrash(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !httpxmiddleware.DecodeJSON(w, r, &req) {
		return
	}

	restored, err := h.trash.Restore(r.Context(), req.Path)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "restored", map[string]any{"path": restored})
}

// PurgeTrash handles DELETE /api/trash/{path}.
func (h *Handler) PurgeTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.trash.Purge(r.Context(), pathParam(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "deleted", nil)
}

// EmptyTrash handles DELETE /api/trash.
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.trash.PurgeAll(r.Context()); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.Status(w, "trash emptied", nil)
}

// pathParam returns the wildcard tail of the route. chi matches on the raw
// path when the URL carried escapes like %2F, so those are decoded here.
func pathParam(r *http.Request) string {
	p := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return p
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}
