package handler

import (
	"net/http"
	"strings"
)

// HandleNotFound is the router's fallback. API paths get a JSON 404 so
// frontend fetch calls always receive JSON; anything else gets a plain
// text 404.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "API endpoint not found",
		})
		return
	}
	http.NotFound(w, r)
}
