package handler

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/service"
	"github.com/sakif/pinboard/internal/ws"
)

// CategoryHandler manages the category endpoints.
type CategoryHandler struct {
	categories *service.CategoryService
	hub        *ws.Hub
	logger     *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler. hub may be nil to
// disable realtime events.
func NewCategoryHandler(categories *service.CategoryService, hub *ws.Hub, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, hub: hub, logger: logger}
}

func (h *CategoryHandler) broadcast(eventType string, data any) {
	if h.hub != nil {
		h.hub.Broadcast(eventType, data)
	}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// HandleList returns all categories in alphabetical order.
//
// HTTP: GET /api/pins/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleCreate creates a category.
//
// HTTP: POST /api/pins/categories
// REQUEST BODY: {"name": "Parks", "color": "#00AA00"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid category JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventCategoryCreated, category)
	writeJSON(w, http.StatusCreated, category)
}

// HandleUpdate renames or recolours a category.
//
// HTTP: PUT /api/pins/categories/{id}
//
// Existing pins keep the colour they were stamped with; only the
// category row changes.
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid category JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	category, err := h.categories.Update(r.Context(), id, req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventCategoryUpdated, category)
	writeJSON(w, http.StatusOK, category)
}

// HandleDelete removes an unused category. Deleting a category that
// pins still reference is rejected with 400.
//
// HTTP: DELETE /api/pins/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventCategoryDeleted, map[string]any{"id": id})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Category deleted successfully",
		"id":      id,
	})
}
