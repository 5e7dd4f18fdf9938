package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/service"
	"github.com/sakif/pinboard/internal/ws"
)

// PinHandler manages the pin endpoints: CRUD, visits, and visit history.
//
// BROADCAST ORCHESTRATION:
// The handler is the layer that pushes realtime events, not the service.
// The service stays protocol-agnostic (it can be driven by HTTP today,
// a CLI or queue consumer tomorrow), and each transport decides for itself
// what its clients need to hear. The event goes out only AFTER the mutation
// succeeded — clients never see an event for a change that rolled back.
//
// The hub is optional: with a nil hub every endpoint still works, there is
// just no fanout. Handler tests use that mode.
type PinHandler struct {
	pins   *service.PinService
	hub    *ws.Hub
	logger *slog.Logger
}

// NewPinHandler creates a new PinHandler. hub may be nil to disable
// realtime events.
func NewPinHandler(pins *service.PinService, hub *ws.Hub, logger *slog.Logger) *PinHandler {
	return &PinHandler{pins: pins, hub: hub, logger: logger}
}

func (h *PinHandler) broadcast(eventType string, data any) {
	if h.hub != nil {
		h.hub.Broadcast(eventType, data)
	}
}

// parseID extracts the {id} URL parameter as an int64.
// Chi populates r.PathValue for route parameters, so for
// GET /api/pins/42 PathValue("id") returns "42".
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "id must be an integer")
	}
	return id, nil
}

// pinRequest is the JSON body for both create and update.
//
// POINTERS FOR COORDINATES:
// Latitude and Longitude are *float64 so we can tell "field absent" apart
// from "field is 0". With plain float64, {"latitude": 0} and a missing
// latitude both decode to 0 — and (0, 0) is a real location.
type pinRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Category    string   `json:"category"`
	CreatedBy   string   `json:"created_by"`
	UpdatedBy   string   `json:"updated_by"`
}

// HandleList returns every pin, newest first.
//
// HTTP: GET /api/pins
func (h *PinHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pins, err := h.pins.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

// pinWithHistory is the GET-by-id response: the pin plus its recent visits.
type pinWithHistory struct {
	model.Pin
	VisitHistory []model.Visit `json:"visitHistory"`
}

// HandleGet returns a single pin with its recent visit history attached.
//
// HTTP: GET /api/pins/{id}
func (h *PinHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pin, err := h.pins.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	visits, err := h.pins.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pinWithHistory{Pin: *pin, VisitHistory: visits})
}

// HandleCreate creates a pin and announces it to realtime clients.
//
// HTTP: POST /api/pins
// REQUEST BODY: {"name", "description", "latitude", "longitude", "category", "created_by"}
func (h *PinHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid pin JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	pin, err := h.pins.Create(r.Context(), service.CreatePinParams{
		Name:        req.Name,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Category:    req.Category,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventPinCreated, pin)
	writeJSON(w, http.StatusCreated, pin)
}

// HandleUpdate replaces a pin's fields and announces the change.
//
// HTTP: PUT /api/pins/{id}
//
// Omitting "category" from the body keeps the pin's current category AND
// its colour snapshot; sending a category re-resolves the colour.
func (h *PinHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid pin JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	pin, err := h.pins.Update(r.Context(), id, service.UpdatePinParams{
		Name:        req.Name,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Category:    req.Category,
		UpdatedBy:   req.UpdatedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventPinUpdated, pin)
	writeJSON(w, http.StatusOK, pin)
}

// HandleDelete removes a pin (and its visit history, via cascade).
//
// HTTP: DELETE /api/pins/{id}
func (h *PinHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.pins.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventPinDeleted, map[string]any{"id": id})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Pin deleted successfully",
		"id":      id,
	})
}

type visitRequest struct {
	Username string `json:"username"`
	Comment  string `json:"comment"`
}

// HandleVisit records that a user visited a pin.
//
// HTTP: POST /api/pins/{id}/visit
// REQUEST BODY: {"username": "alice", "comment": "great spot"}
func (h *PinHandler) HandleVisit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid visit JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	visit, err := h.pins.Visit(r.Context(), id, req.Username, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ws.EventPinVisited, map[string]any{"pinId": id, "visit": visit})
	// 200, not 201: visits are fire-and-forget acknowledgements, and the
	// existing clients of this API check for an OK status.
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Visit recorded successfully",
		"visit":   visit,
	})
}

// HandleHistory returns a pin's recent visits, newest first.
//
// HTTP: GET /api/pins/{id}/visits
func (h *PinHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	visits, err := h.pins.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visits)
}
