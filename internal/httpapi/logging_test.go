package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"warn":  LevelInfo,
		"DEBUG": LevelDebug,
		"trace": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("short query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
	SetDefaultLogLevel("off")
	defer SetDefaultLogLevel("info")
	if got := requestLogLevel(httptest.NewRequest("GET", "/x", nil)); got != LevelOff {
		t.Fatalf("default level not applied: %v", got)
	}
}

func TestStreamFragmentsLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	h := NewMux(&mockService{snaps: []string{"Be", "Be calm."}}, Options{})
	serve(h, http.MethodPost, "/ancestor/stream", askBody)
	if strings.Contains(buf.String(), "stream>") {
		t.Fatalf("fragments logged without debug: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "stream end") {
		t.Fatalf("missing stream end: %s", buf.String())
	}

	buf.Reset()
	serve(h, http.MethodPost, "/ancestor/stream?log=debug", askBody)
	out := buf.String()
	if !strings.Contains(out, `"delta":" calm."`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("missing fragment log: %s", out)
	}

	buf.Reset()
	serve(h, http.MethodPost, "/ancestor/stream?log=off", askBody)
	if buf.Len() != 0 {
		t.Fatalf("expected no logs with log=off: %s", buf.String())
	}
}
