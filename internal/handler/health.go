package handler

import (
	"net/http"
	"time"
)

// HandleHealth reports liveness. Deliberately does NOT touch the
// database: a health probe that fails on a slow query takes the whole
// instance out of rotation for no good reason.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
