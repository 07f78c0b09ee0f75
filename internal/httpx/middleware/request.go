package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"markdesk-server/internal/httpx/response"
)

// DecodeJSON decodes the request body into dst. On failure it writes the error
// response and returns false. The body size is capped upstream by chi's RequestSize.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			response.BadRequest(w, "Request body is required")
		default:
			response.BadRequest(w, "Invalid JSON body")
		}
		return false
	}
	return true
}
