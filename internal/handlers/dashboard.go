package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/engine"
	"github.com/bobmcallan/vire-track/internal/interfaces"
	"github.com/bobmcallan/vire-track/internal/models"
)

// DashboardHandler serves the dashboard snapshot for a collection and handles
// invalidation after position edits.
type DashboardHandler struct {
	logger *common.Logger
	engine *engine.Engine
	source interfaces.PositionSource
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(logger *common.Logger, eng *engine.Engine, source interfaces.PositionSource) *DashboardHandler {
	return &DashboardHandler{logger: logger, engine: eng, source: source}
}

type freshResult struct {
	snap *models.DashboardSnapshot
	err  error
}

// Load handles GET /api/dashboard/{collection}.
//
// A valid cached snapshot is returned immediately with stale=true while the
// refresh cycle continues in the background; its result reaches clients via
// the price websocket and the next load. On a cold start the request waits
// for the cycle to finish.
func (h *DashboardHandler) Load(w http.ResponseWriter, r *http.Request) {
	collectionID := mux.Vars(r)["collection"]
	force := r.URL.Query().Get("force") == "1"

	positions, err := h.source.Positions(r.Context(), collectionID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	fresh := make(chan freshResult, 1)
	cached := h.engine.LoadDashboard(r.Context(), collectionID, positions, force, func(snap *models.DashboardSnapshot, err error) {
		fresh <- freshResult{snap: snap, err: err}
	})

	if cached != nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"stale":    true,
			"snapshot": cached,
		})
		return
	}

	// Cold start: nothing to paint until the cycle settles.
	select {
	case result := <-fresh:
		if result.err != nil {
			h.logger.Warn().Str("collection", collectionID).Err(result.err).Msg("dashboard load failed with no cached snapshot")
			WriteError(w, http.StatusBadGateway, "could not refresh collection")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"stale":    false,
			"snapshot": result.snap,
		})
	case <-r.Context().Done():
		WriteError(w, http.StatusGatewayTimeout, "refresh cycle did not complete in time")
	}
}

// Invalidate handles POST /api/dashboard/{collection}/invalidate.
// Drops the snapshot and the collection's cached series so the next load
// runs a clean cycle.
func (h *DashboardHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	collectionID := mux.Vars(r)["collection"]

	positions, err := h.source.Positions(r.Context(), collectionID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	if err := h.engine.Invalidate(r.Context(), collectionID, symbols); err != nil {
		h.logger.Warn().Str("collection", collectionID).Err(err).Msg("invalidation incomplete")
		WriteError(w, http.StatusInternalServerError, "invalidation incomplete")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
