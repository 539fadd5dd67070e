package voice

import (
	"context"
	"sync"
	"time"
)

// MockCapability is a scriptable recognizer used by tests and demo runs.
type MockCapability struct {
	mu       sync.Mutex
	sessions []*MockEngine
}

func NewMockCapability() *MockCapability { return &MockCapability{} }

func (c *MockCapability) Supported() bool { return true }

func (c *MockCapability) Start(_ context.Context, _ EngineConfig) (Engine, error) {
	e := &MockEngine{events: make(chan Event, 64)}
	c.mu.Lock()
	c.sessions = append(c.sessions, e)
	c.mu.Unlock()
	return e, nil
}

// Sessions returns every engine handed out so far, live or stopped.
func (c *MockCapability) Sessions() []*MockEngine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*MockEngine, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// LiveCount reports how many handed-out engines have not been stopped.
func (c *MockCapability) LiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.sessions {
		if !e.Stopped() {
			n++
		}
	}
	return n
}

type MockEngine struct {
	mu      sync.Mutex
	events  chan Event
	stopped bool
}

func (e *MockEngine) Events() <-chan Event { return e.events }

func (e *MockEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	e.stopped = true
	close(e.events)
	return nil
}

func (e *MockEngine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// EmitPartial pushes an interim result into the stream.
func (e *MockEngine) EmitPartial(text string) { e.emit(Event{Type: EventPartial, Text: text}) }

// EmitFinal pushes a finalized transcript fragment into the stream.
func (e *MockEngine) EmitFinal(text string) { e.emit(Event{Type: EventFinal, Text: text}) }

// EmitError pushes an engine error into the stream.
func (e *MockEngine) EmitError(code, detail string) {
	e.emit(Event{Type: EventError, Code: code, Detail: detail})
}

func (e *MockEngine) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	ev.Timestamp = time.Now().UnixMilli()
	e.events <- ev
}
