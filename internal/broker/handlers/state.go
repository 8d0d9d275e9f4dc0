package handlers

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/voicebus/internal/broker/responses"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// StateHandlers contains the state ingestion and current-view handlers.
type StateHandlers struct {
	bus          BusInterface
	errorAdapter *verrors.HTTPErrorAdapter
}

// NewStateHandlers creates a new state handlers instance.
func NewStateHandlers(bus BusInterface) *StateHandlers {
	return &StateHandlers{
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleSubmitState accepts one StateRecord submission on POST /state.
func (h *StateHandlers) HandleSubmitState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}

	rec, err := h.bus.SubmitState(body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	slog.Debug("State recorded",
		logfields.State(string(rec.State)),
		logfields.Source(rec.Source),
		logfields.SessionID(rec.SessionID))

	if err := writeJSON(w, http.StatusOK, responses.OKResponse{OK: true}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write state response", err))
	}
}

// HandleCurrentState serves the most-recent-wins current view on GET /state.
func (h *StateHandlers) HandleCurrentState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	resp := responses.CurrentStateResponse{Current: h.bus.CurrentState()}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write current state", err))
	}
}
