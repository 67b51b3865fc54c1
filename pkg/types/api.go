package types

// ChatMessage is one turn of the conversation sent by the client.
type ChatMessage struct {
	// Author of the turn: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user" validate:"required,oneof=system user assistant"`
	// Text of the turn.
	// example: What does the baobab teach us?
	Content string `json:"content" example:"What does the baobab teach us?"`
}

// AskRequest is the body of POST /ancestor and POST /ancestor/stream.
type AskRequest struct {
	// Conversation history. The latest user turn becomes the question.
	Messages []ChatMessage `json:"messages" validate:"required,dive"`
	// If true, synthesize speech for the reply (ignored by the stream endpoint).
	// example: false
	TTS bool `json:"tts,omitempty" example:"false"`
	// Maximum number of new tokens to generate; 0 uses the server default.
	// example: 180
	MaxTokens int `json:"max_tokens,omitempty" example:"180" validate:"gte=0,lte=4096"`
}

// AskResponse is returned by GET /ancestor and POST /ancestor.
type AskResponse struct {
	// Ancestor's reply, or a fixed notice when the model is unavailable.
	// example: Patience, child. The river does not hurry, yet it reaches the sea.
	Response string `json:"response" example:"Patience, child. The river does not hurry, yet it reaches the sea."`
	// Path of the synthesized audio file, present only when speech was produced.
	// example: tts_output/6f1c0f3e.wav
	TTSFile string `json:"tts_file,omitempty" example:"tts_output/6f1c0f3e.wav"`
}

// StreamChunk is one NDJSON line of POST /ancestor/stream?format=ndjson.
type StreamChunk struct {
	// Full cleaned text so far.
	Text string `json:"text,omitempty"`
	// New text since the previous chunk.
	Delta string `json:"delta,omitempty"`
	// Set on the final line.
	Done bool `json:"done,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: No user message found in messages[]
	Error string `json:"error" example:"No user message found in messages[]"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// EngineStatus summarizes the model resource for /status.
type EngineStatus struct {
	// Backend driving the model (cli, server, llama).
	// example: cli
	Backend string `json:"backend" example:"cli"`
	// Lifecycle state of the model session (idle, loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Whether a generation currently holds the resource.
	// example: true
	Busy bool `json:"busy" example:"true"`
	// Callers waiting for the resource.
	// example: 2
	Waiters int `json:"waiters" example:"2"`
	// Circuit breaker state (closed, half-open, open).
	// example: closed
	Breaker string `json:"breaker" example:"closed"`
	// Last initialization or generation error, if any.
	LastError string `json:"last_error,omitempty"`
	// Completed generations since start.
	// example: 12
	Generations uint64 `json:"generations_total" example:"12"`
	// Generations answered with the unavailable notice.
	// example: 1
	Fallbacks uint64 `json:"fallbacks_total" example:"1"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Engine EngineStatus `json:"engine"`
	// Model file served.
	Model Model `json:"model"`
	// Speech backend (none, google, command).
	// example: none
	Speech string `json:"speech" example:"none"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
