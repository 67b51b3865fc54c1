package engine

import "github.com/rs/zerolog"

// Event represents an engine or adapter lifecycle event.
// Minimal and stable: name + backend and optional fields via key/values.
type Event struct {
	Name    string
	Backend string
	Fields  map[string]any
}

// EventPublisher receives events from the engine. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct{ Log zerolog.Logger }

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name).Str("backend", e.Backend)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("engine event")
}
