package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info", "warn":
		return LevelInfo
	case "debug", "trace":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var defaultLogLevel = LevelInfo

// SetDefaultLogLevel sets the request log level used when a request does
// not ask for one.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog returns an event for r when the request's log level is at least
// min, or nil (zerolog events are nil-safe) otherwise. Request overrides
// decide what the handler emits; the process logger level still applies.
func reqLog(r *http.Request, min LogLevel) *zerolog.Event {
	if requestLogLevel(r) < min {
		return nil
	}
	var ev *zerolog.Event
	if min == LevelError {
		ev = zlog.Error()
	} else {
		ev = zlog.Info()
	}
	ev = ev.Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	return ev
}
