package handlers

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/voicebus/internal/broker/responses"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// QueueHandlers contains the enqueue/drain handlers for both bus queues.
type QueueHandlers struct {
	bus          BusInterface
	errorAdapter *verrors.HTTPErrorAdapter
}

// NewQueueHandlers creates a new queue handlers instance.
func NewQueueHandlers(bus BusInterface) *QueueHandlers {
	return &QueueHandlers{
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleResponses serves POST (enqueue) and GET (drain-all) on /responses.
func (h *QueueHandlers) HandleResponses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enqueue(w, r, statebus.QueueResponses)
	case http.MethodGet:
		drained, err := h.bus.DrainQueue(statebus.QueueResponses)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		h.write(w, r, responses.ResponsesDrain{Responses: drained})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleCommands serves POST (enqueue) and GET (drain-all) on /commands.
func (h *QueueHandlers) HandleCommands(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enqueue(w, r, statebus.QueueCommands)
	case http.MethodGet:
		drained, err := h.bus.DrainQueue(statebus.QueueCommands)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		h.write(w, r, responses.CommandsDrain{Commands: drained})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *QueueHandlers) enqueue(w http.ResponseWriter, r *http.Request, queue string) {
	body, err := readBody(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}
	if err := h.bus.EnqueueEntry(queue, body); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	slog.Debug("Queue entry accepted", logfields.Queue(queue))
	h.write(w, r, responses.OKResponse{OK: true})
}

func (h *QueueHandlers) write(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write queue response", err))
	}
}
