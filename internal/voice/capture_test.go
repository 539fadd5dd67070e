package voice

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu       sync.Mutex
	interims []string
	finals   []string
	stops    []string
	stopped  chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{stopped: make(chan struct{}, 8)}
}

func (s *recordingSink) InterimTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interims = append(s.interims, text)
}

func (s *recordingSink) FinalTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals = append(s.finals, text)
}

func (s *recordingSink) CaptureStopped(detail string) {
	s.mu.Lock()
	s.stops = append(s.stops, detail)
	s.mu.Unlock()
	s.stopped <- struct{}{}
}

func (s *recordingSink) snapshot() (interims, finals, stops []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.interims...), append([]string(nil), s.finals...), append([]string(nil), s.stops...)
}

func waitStopped(t *testing.T, s *recordingSink) {
	t.Helper()
	select {
	case <-s.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("capture did not report stop")
	}
}

func TestStartTwiceKeepsSingleEngine(t *testing.T) {
	capability := NewMockCapability()
	sink := newRecordingSink()
	capture := NewCapture(capability, "en-US", sink)

	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("first StartListening error = %v", err)
	}
	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("second StartListening error = %v", err)
	}

	if got := capability.LiveCount(); got != 1 {
		t.Fatalf("live engines = %d, want 1", got)
	}
	capture.StopListening()
	waitStopped(t, sink)
}

func TestFinalAndInterimRouting(t *testing.T) {
	capability := NewMockCapability()
	sink := newRecordingSink()
	capture := NewCapture(capability, "en-US", sink)

	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening error = %v", err)
	}
	engine := capability.Sessions()[0]
	engine.EmitPartial("hel")
	engine.EmitPartial("hello wo")
	engine.EmitFinal("hello world")

	capture.StopListening()
	waitStopped(t, sink)

	interims, finals, _ := sink.snapshot()
	if len(interims) != 2 {
		t.Fatalf("interims = %v, want 2 entries", interims)
	}
	if len(finals) != 1 || finals[0] != "hello world" {
		t.Fatalf("finals = %v, want [hello world]", finals)
	}
	if capture.Listening() {
		t.Fatalf("capture still listening after stop")
	}
}

func TestEngineErrorStopsCapture(t *testing.T) {
	capability := NewMockCapability()
	sink := newRecordingSink()
	capture := NewCapture(capability, "en-US", sink)

	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening error = %v", err)
	}
	engine := capability.Sessions()[0]
	engine.EmitError("no-speech", "no speech detected")

	waitStopped(t, sink)
	_, _, stops := sink.snapshot()
	if len(stops) != 1 || stops[0] != "no speech detected" {
		t.Fatalf("stops = %v, want the engine error detail", stops)
	}
	if capture.Listening() {
		t.Fatalf("capture still listening after engine error")
	}
}

func TestEngineEndOfStreamIsImplicitStop(t *testing.T) {
	capability := NewMockCapability()
	sink := newRecordingSink()
	capture := NewCapture(capability, "en-US", sink)

	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening error = %v", err)
	}
	engine := capability.Sessions()[0]
	_ = engine.Stop()

	waitStopped(t, sink)
	_, _, stops := sink.snapshot()
	if len(stops) != 1 || stops[0] != "" {
		t.Fatalf("stops = %v, want one empty detail", stops)
	}
	if capture.Listening() {
		t.Fatalf("capture still listening after engine end")
	}
}

func TestUnsupportedHostIsNoOp(t *testing.T) {
	sink := newRecordingSink()
	capture := NewCapture(NewNopCapability(), "en-US", sink)

	if capture.Supported() {
		t.Fatalf("Supported() = true for nop capability")
	}
	if err := capture.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening on unsupported host error = %v", err)
	}
	if capture.Listening() {
		t.Fatalf("unsupported capture reports listening")
	}
	capture.StopListening()
}
