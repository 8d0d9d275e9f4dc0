package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/voicebus/internal/broker/responses"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// MonitoringHandlers contains the health reporting/aggregation and stats handlers.
type MonitoringHandlers struct {
	bus          BusInterface
	errorAdapter *verrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(bus BusInterface) *MonitoringHandlers {
	return &MonitoringHandlers{
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealth serves POST (per-service report) and GET (aggregate) on /health.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.report(w, r)
	case http.MethodGet:
		resp := responses.HealthList{Services: h.bus.HealthList()}
		if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
			h.errorAdapter.WriteErrorResponse(w, r,
				verrors.InternalError("failed to write health response", err))
		}
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *MonitoringHandlers) report(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}

	var rep responses.HealthReport
	if err := json.Unmarshal(body, &rep); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}
	if rep.Name == "" {
		h.errorAdapter.WriteErrorResponse(w, r, verrors.MissingField("name"))
		return
	}
	if rep.Status == "" {
		rep.Status = "ok"
	}

	h.bus.ReportHealth(rep.Name, rep.Status, rep.UptimeSec)
	slog.Debug("Health report", logfields.Service(rep.Name),
		slog.String("status", rep.Status))

	if err := writeJSON(w, http.StatusOK, responses.OKResponse{OK: true}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write health ack", err))
	}
}

// HandleStats serves the lightweight history count on GET /stats.
func (h *MonitoringHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	resp := responses.StatsResponse{StateHistoryCount: h.bus.HistoryLen()}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write stats response", err))
	}
}
