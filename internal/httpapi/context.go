package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is canceled on process shutdown so in-flight generations stop
// together with the listener.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when the handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b)
	stop := context.AfterFunc(a, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// requestContext joins the request with the server base context.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return joinContexts(serverBaseCtx, r.Context())
}

// shuttingDown reports whether the handler's work ended because the client
// went away or the server is stopping.
func shuttingDown(r *http.Request) bool {
	return r.Context().Err() != nil || serverBaseCtx.Err() != nil
}
