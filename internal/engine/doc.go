// Package engine owns the single llama.cpp model resource and serializes all
// generation against it. It is structured into small files by concern:
//
//   - adapter_iface.go: Adapter/Session contract and generation Params.
//   - engine.go: Engine type, lazy session initialization, status, shutdown.
//   - admission.go: the resource lock (single in-flight generation, FIFO waiters).
//   - generate.go: Complete (blocking) and Stream (lazy snapshots) entry points.
//   - breaker.go: circuit breaker around the resource.
//   - errors.go: error types and helpers (IsDependencyUnavailable).
//   - metrics.go: prometheus collectors.
//   - events.go: lifecycle events for adapters (spawn, ready, stop).
//   - adapters.go: backend selection from configuration.
//
// Backends:
//
//   - cli (default): spawns llama-cli per generation and reads stdout as it
//     is produced. Files: adapter_llama_cli.go.
//
//   - server: spawns one llama-server (or attaches to a running one) and
//     streams OpenAI-compatible SSE from /v1/completions.
//     Files: adapter_llama_server.go.
//
//   - llama (in-process): go-llama.cpp binding. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go. A no-CGO stub is compiled when
//     the tag is not set: adapter_llama_stub.go.
//
// Callers never see resource errors: Complete and Stream turn every failure
// into sentinel text. Only the raw Adapter surface returns errors.
package engine
