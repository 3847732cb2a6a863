// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/nfoscan/internal/log"
)

// apiError is the JSON body of every error response.
type apiError struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response carrying the request ID.
func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, detail string) {
	writeJSON(w, code, apiError{
		Error:     errCode,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}
