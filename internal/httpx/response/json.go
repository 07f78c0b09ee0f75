package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response payload with status code.
func JSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// Status writes {"status": message} with 200, the acknowledgement shape most mutations use.
func Status(w http.ResponseWriter, message string, extra map[string]any) {
	payload := map[string]any{"status": message}
	for k, v := range extra {
		payload[k] = v
	}
	JSON(w, http.StatusOK, payload)
}
