package handlers

import (
	"log/slog"
	"net/http"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// ConfigHandlers serves the read-only configuration snapshot.
type ConfigHandlers struct {
	bus          BusInterface
	errorAdapter *verrors.HTTPErrorAdapter
}

// NewConfigHandlers creates a new config handlers instance.
func NewConfigHandlers(bus BusInterface) *ConfigHandlers {
	return &ConfigHandlers{
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleConfig serves GET /config (sanitized snapshot). POST is reserved for
// runtime reconfiguration and deliberately answers 501 until that lands.
func (h *ConfigHandlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := writeJSONPretty(w, r, http.StatusOK, h.bus.ConfigSnapshot()); err != nil {
			h.errorAdapter.WriteErrorResponse(w, r,
				verrors.InternalError("failed to write config response", err))
		}
	case http.MethodPost:
		_ = writeJSON(w, http.StatusNotImplemented, map[string]string{
			"error": "not implemented",
		})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
