// Package logfields provides canonical slog field helpers shared across the
// voicebus services so log keys do not drift between packages.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyState      = "state"
	KeySource     = "source"
	KeySessionID  = "session_id"
	KeyQueue      = "queue"
	KeyProvider   = "provider"
	KeyReason     = "reason"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyService    = "service"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func Source(s string) slog.Attr        { return slog.String(KeySource, s) }
func SessionID(id string) slog.Attr    { return slog.String(KeySessionID, id) }
func Queue(q string) slog.Attr         { return slog.String(KeyQueue, q) }
func Provider(p string) slog.Attr      { return slog.String(KeyProvider, p) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Service(name string) slog.Attr    { return slog.String(KeyService, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
