package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySite       = "site"
	KeyServiceURL = "service_url"
	KeyHandle     = "handle"
	KeyInstanceID = "instance_id"
	KeyChannel    = "channel"
	KeySignal     = "signal"
	KeyEventType  = "event_type"
	KeyDeployID   = "deploy_id"
	KeyDurationMS = "duration_ms"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyRequestID  = "request_id"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Site(name string) slog.Attr      { return slog.String(KeySite, name) }
func ServiceURL(u string) slog.Attr   { return slog.String(KeyServiceURL, u) }
func Handle(kind string) slog.Attr    { return slog.String(KeyHandle, kind) }
func InstanceID(id string) slog.Attr  { return slog.String(KeyInstanceID, id) }
func Channel(c string) slog.Attr      { return slog.String(KeyChannel, c) }
func Signal(s string) slog.Attr       { return slog.String(KeySignal, s) }
func EventType(t string) slog.Attr    { return slog.String(KeyEventType, t) }
func DeployID(id string) slog.Attr    { return slog.String(KeyDeployID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
