package voice

import (
	"context"
	"sync"
)

// Sink receives capture output. FinalTranscript fragments are meant to be
// appended to the answer draft; interim text is status-only and must never
// land in the draft.
type Sink interface {
	InterimTranscript(text string)
	FinalTranscript(text string)
	CaptureStopped(detail string)
}

// Capture owns at most one live recognition engine and serializes the
// listening state transitions. Voice failures are recoverable: they stop
// capture and surface status text, nothing more.
type Capture struct {
	capability Capability
	cfg        EngineConfig
	sink       Sink
	supported  bool

	mu     sync.Mutex
	engine Engine
	done   chan struct{}
}

func NewCapture(capability Capability, locale string, sink Sink) *Capture {
	supported := capability != nil && capability.Supported()
	return &Capture{
		capability: capability,
		cfg: EngineConfig{
			Locale:         locale,
			Continuous:     true,
			InterimResults: true,
		},
		sink:      sink,
		supported: supported,
	}
}

// Supported reports the result of the construction-time capability probe.
func (c *Capture) Supported() bool { return c.supported }

// Listening reports whether a recognition engine is currently live.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil
}

// StartListening begins capture. Starting while already listening is a
// no-op, as is starting on an unsupported host.
func (c *Capture) StartListening(ctx context.Context) error {
	if !c.supported {
		return nil
	}

	c.mu.Lock()
	if c.engine != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	engine, err := c.capability.Start(ctx, c.cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.engine != nil {
		// Lost the race against a concurrent start; keep the first engine.
		c.mu.Unlock()
		_ = engine.Stop()
		return nil
	}
	done := make(chan struct{})
	c.engine = engine
	c.done = done
	c.mu.Unlock()

	go c.consume(engine, done)
	return nil
}

// StopListening stops the live engine if any and waits for its event stream
// to drain, so no transcript lands in the draft after it returns. Stopping
// while not listening is a no-op.
func (c *Capture) StopListening() {
	c.mu.Lock()
	engine := c.engine
	done := c.done
	c.mu.Unlock()

	if engine == nil {
		return
	}
	_ = engine.Stop()
	<-done
}

func (c *Capture) consume(engine Engine, done chan struct{}) {
	var errDetail string

	for ev := range engine.Events() {
		switch ev.Type {
		case EventPartial:
			c.sink.InterimTranscript(ev.Text)
		case EventFinal:
			if ev.Text != "" {
				c.sink.FinalTranscript(ev.Text)
			}
		case EventError:
			errDetail = ev.Detail
			if errDetail == "" {
				errDetail = ev.Code
			}
			_ = engine.Stop()
		}
	}

	c.mu.Lock()
	if c.engine == engine {
		c.engine = nil
		c.done = nil
	}
	c.mu.Unlock()
	close(done)

	c.sink.CaptureStopped(errDetail)
}
