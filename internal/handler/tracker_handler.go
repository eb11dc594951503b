package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evyataryagoni/iptracker/internal/controller"
	"github.com/evyataryagoni/iptracker/internal/geoapi"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/middleware"
	"github.com/evyataryagoni/iptracker/internal/models"
	"github.com/evyataryagoni/iptracker/internal/render"
	"github.com/evyataryagoni/iptracker/internal/session"
)

// maxBodyBytes bounds JSON and form bodies. The address itself is not
// validated; the lookup service is the judge of what it can resolve.
const maxBodyBytes = 4 << 10

const appName = "IP Address Tracker"

// InputRequest is the body of PUT /v1/input
type InputRequest struct {
	Address string `json:"address"`
}

// MapInitResponse is the body returned by POST /v1/map/init
type MapInitResponse struct {
	Created bool                 `json:"created"`
	Map     *controller.MapState `json:"map"`
}

// TrackerHandler serves the tracker page and its JSON API.
//
// Every handler expects the session middleware to have stored the
// caller's controller in the request context.
type TrackerHandler struct {
	renderer *render.Renderer
	logger   *logger.Logger
}

// NewTrackerHandler creates a handler rendering pages with renderer
func NewTrackerHandler(renderer *render.Renderer, log *logger.Logger) *TrackerHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &TrackerHandler{
		renderer: renderer,
		logger:   log.WithComponent("TrackerHandler"),
	}
}

// Page handles GET /
//
// Rendering the page is the map's mount point, so the map handle is
// created here on the first visit of a session.
func (h *TrackerHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	ctrl.InitializeMapOnce()

	state := ctrl.Snapshot()
	bp := render.BreakpointFromRequest(r)
	page := render.Page{
		Title:       pageTitle(state),
		State:       state,
		Layout:      render.LayoutFor(bp),
		DefaultView: ctrl.DefaultView(),
		Tiles:       ctrl.Tiles(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Accept-CH", "Sec-CH-Viewport-Width, Viewport-Width")
	w.Header().Set("Vary", "Sec-CH-Viewport-Width, Viewport-Width, User-Agent")

	if err := h.renderer.Render(w, page); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// SubmitForm handles POST /lookup from the plain HTML form
func (h *TrackerHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ctrl.UpdateInputText(r.PostFormValue("address"))
	// a failure is kept in the controller state and shown on the next render
	_ = ctrl.SubmitLookup(lookupContext(r))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// State handles GET /v1/state
func (h *TrackerHandler) State(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

// UpdateInput handles PUT /v1/input
func (h *TrackerHandler) UpdateInput(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req InputRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctrl.UpdateInputText(req.Address)
	h.respondJSON(w, http.StatusOK, ctrl.Snapshot())
}

// Lookup handles POST /v1/lookup
func (h *TrackerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	err := ctrl.SubmitLookup(lookupContext(r))
	switch {
	case err == nil:
		h.respondJSON(w, http.StatusOK, ctrl.Snapshot())
	case errors.Is(err, controller.ErrSuperseded):
		h.respondError(w, http.StatusConflict, "A newer lookup has already been applied")
	default:
		// built from err, the shared state may already belong to a newer lookup
		h.respondError(w, http.StatusBadGateway, controller.UserMessage(err))
	}
}

// InitMap handles POST /v1/map/init
func (h *TrackerHandler) InitMap(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	created := ctrl.InitializeMapOnce()
	h.respondJSON(w, http.StatusOK, MapInitResponse{
		Created: created,
		Map:     ctrl.Snapshot().Map,
	})
}

// Layout handles GET /v1/layout?breakpoint=<compact|wide>
//
// Without a breakpoint parameter the one detected for the request is used.
func (h *TrackerHandler) Layout(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("breakpoint")
	if name == "" {
		h.respondJSON(w, http.StatusOK, render.LayoutFor(render.BreakpointFromRequest(r)))
		return
	}

	bp, err := render.ParseBreakpoint(name)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "breakpoint must be 'compact' or 'wide'")
		return
	}
	h.respondJSON(w, http.StatusOK, render.LayoutFor(bp))
}

// pageTitle names the tracked address in the browser tab once there is one
func pageTitle(s controller.State) string {
	if !s.Result.Available {
		return appName
	}
	return s.Result.IP + " | " + appName
}

// lookupContext lets an empty lookup resolve the browser's address
func lookupContext(r *http.Request) context.Context {
	return geoapi.WithCallerIP(r.Context(), middleware.ClientIP(r))
}

func (h *TrackerHandler) controller(w http.ResponseWriter, r *http.Request) (*controller.ViewController, bool) {
	ctrl, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error().Str("path", r.URL.Path).Msg("No session in request context")
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return ctrl, true
}

// respondJSON writes a JSON response with the given status code
func (h *TrackerHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes an error response with consistent formatting
func (h *TrackerHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, models.ErrorResponse{Error: message})
}
