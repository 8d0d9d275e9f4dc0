package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/voicebus/internal/broker/responses"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// LogHandlers serves the paginated, filtered history query.
type LogHandlers struct {
	bus          BusInterface
	errorAdapter *verrors.HTTPErrorAdapter
}

// NewLogHandlers creates a new log handlers instance.
func NewLogHandlers(bus BusInterface) *LogHandlers {
	return &LogHandlers{
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleLogs serves GET /logs with optional limit, offset, state, source and
// since query parameters. Offset is right-anchored: it counts back from the
// end of the filtered set, so offset=0&limit=N is the most recent N entries.
func (h *LogHandlers) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	q := r.URL.Query()
	filter := statebus.QueryFilter{
		State:  q.Get("state"),
		Source: q.Get("source"),
		Since:  q.Get("since"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.errorAdapter.WriteErrorResponse(w, r,
				verrors.ValidationFailed("limit", "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.errorAdapter.WriteErrorResponse(w, r,
				verrors.ValidationFailed("offset", "must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}

	result := h.bus.QueryHistory(filter)
	resp := responses.LogsResponse{
		Entries: result.Entries,
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
	}
	if resp.Entries == nil {
		resp.Entries = []statebus.Record{}
	}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to write logs response", err))
	}
}
