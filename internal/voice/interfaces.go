package voice

import "context"

type EventType string

const (
	EventPartial EventType = "partial"
	EventFinal   EventType = "final"
	EventError   EventType = "error"
)

type Event struct {
	Type      EventType
	Text      string
	Code      string
	Detail    string
	Timestamp int64
}

type EngineConfig struct {
	Locale         string
	Continuous     bool
	InterimResults bool
}

// Engine is one live recognition stream. The events channel closes when the
// stream ends, whether by Stop or by the engine itself.
type Engine interface {
	Events() <-chan Event
	Stop() error
}

// Capability is the injected speech-recognition provider. Supported is a
// one-time probe taken at adapter construction, not re-checked per call.
type Capability interface {
	Supported() bool
	Start(ctx context.Context, cfg EngineConfig) (Engine, error)
}
