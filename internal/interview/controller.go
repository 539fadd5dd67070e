// Package interview holds the client-side session controller: the state
// machine that sequences service calls, merges speech transcripts into the
// answer draft, and tracks progress. Presentation surfaces bind to it
// through the EventSink instead of re-implementing the flow.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/greenroomhq/greenroom/internal/client"
	"github.com/greenroomhq/greenroom/internal/progress"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/voice"
)

type State string

const (
	StateIdle             State = "idle"
	StateStarting         State = "starting"
	StateAwaitingQuestion State = "awaiting_question"
	StateActive           State = "active"
	StateSubmitting       State = "submitting"
	StateCompleting       State = "completing"
	StateCompleted        State = "completed"
	StateErrored          State = "errored"
)

// DefaultTotalQuestions is used when the start response omits the count.
const DefaultTotalQuestions = 5

var (
	ErrNoSession         = errors.New("no active session")
	ErrNoCurrentQuestion = errors.New("no current question")
	ErrSubmitInFlight    = errors.New("submission already in flight")
)

// SessionAPI is the slice of the remote session client the controller
// drives. *client.Client satisfies it.
type SessionAPI interface {
	Start(ctx context.Context, req protocol.StartRequest) (protocol.StartResponse, error)
	RequestNext(ctx context.Context, sessionID string) (client.NextQuestionResult, error)
	Answer(ctx context.Context, sessionID string, req protocol.AnswerRequest) error
	End(ctx context.Context, sessionID string) (protocol.EndResponse, error)
	Report(ctx context.Context, sessionID string) (protocol.Report, error)
}

// EventSink receives controller output. Implementations render it; they
// must not call back into the controller from inside a callback.
type EventSink interface {
	StateChanged(state State)
	StatusText(text string)
	QuestionShown(q protocol.Question)
	DraftChanged(draft string)
	ProgressChanged(snap progress.Snapshot)
	ListeningChanged(listening bool)
	SummaryReady(summary protocol.Summary)
}

type StartParams struct {
	JobSpec    string
	CVText     string
	Provider   string
	APIKey     string
	StartRound int
}

// Controller is constructed per session and discarded on navigation; it
// holds no process-wide state.
type Controller struct {
	api     SessionAPI
	capture *voice.Capture
	sink    EventSink

	mu             sync.Mutex
	state          State
	sessionID      string
	totalQuestions int
	current        *protocol.Question
	draft          string
	answered       int
	submitting     bool
	summary        *protocol.Summary
}

func NewController(api SessionAPI, capability voice.Capability, locale string, sink EventSink) *Controller {
	if sink == nil {
		sink = nopSink{}
	}
	c := &Controller{
		api:   api,
		sink:  sink,
		state: StateIdle,
	}
	c.capture = voice.NewCapture(capability, locale, c)
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) CurrentQuestion() (protocol.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return protocol.Question{}, false
	}
	return *c.current, true
}

func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered
}

func (c *Controller) Summary() (protocol.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return protocol.Summary{}, false
	}
	return *c.summary, true
}

// VoiceSupported reports the construction-time capability probe.
func (c *Controller) VoiceSupported() bool { return c.capture.Supported() }

// Start validates inputs locally, creates the session, and immediately
// requests the first question. Validation failures never reach the network.
func (c *Controller) Start(ctx context.Context, params StartParams) error {
	jobSpec := strings.TrimSpace(params.JobSpec)
	cvText := strings.TrimSpace(params.CVText)
	if jobSpec == "" {
		return c.failValidation("Job spec is required")
	}
	if cvText == "" {
		return c.failValidation("CV text is required")
	}
	spec, ok := protocol.LookupProvider(params.Provider)
	if !ok {
		return c.failValidation(fmt.Sprintf("Unknown provider %q (expected %s)",
			params.Provider, strings.Join(protocol.KnownProviders(), ", ")))
	}
	if spec.RequiresKey && strings.TrimSpace(params.APIKey) == "" {
		return c.failValidation(fmt.Sprintf("Provider %s requires an API key", spec.Name))
	}

	c.setState(StateStarting)
	c.status("Generating rubric and first question...")

	res, err := c.api.Start(ctx, protocol.StartRequest{
		JobSpec:    jobSpec,
		CVText:     cvText,
		Provider:   spec.Name,
		APIKey:     strings.TrimSpace(params.APIKey),
		StartRound: params.StartRound,
	})
	if err != nil {
		c.setState(StateIdle)
		c.status(err.Error())
		return err
	}

	total := res.TotalQuestions
	if total < 1 {
		total = DefaultTotalQuestions
	}

	c.mu.Lock()
	c.sessionID = res.SessionID
	c.totalQuestions = total
	c.answered = 0
	c.mu.Unlock()

	c.setState(StateAwaitingQuestion)
	c.emitProgress()
	return c.RequestNextQuestion(ctx)
}

// RequestNextQuestion fetches the next question for the live session. A
// completion signal routes to End; any other failure lands in Errored with
// the server message. A stray repeated call simply replaces the current
// question.
func (c *Controller) RequestNextQuestion(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return ErrNoSession
	}

	result, err := c.api.RequestNext(ctx, sessionID)
	if err != nil {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
		c.setState(StateErrored)
		c.status(err.Error())
		return err
	}

	switch result.Kind {
	case client.InterviewComplete:
		c.setState(StateCompleting)
		return c.End(ctx)
	default:
		c.capture.StopListening()
		q := result.Question
		c.mu.Lock()
		c.current = &q
		c.draft = ""
		c.mu.Unlock()
		c.setState(StateActive)
		c.sink.DraftChanged("")
		c.sink.QuestionShown(q)
		c.emitProgress()
		return nil
	}
}

// SubmitAnswer sends the trimmed draft for the current question. Capture is
// stopped before the answer is processed; on success the draft clears and
// the next question is requested as part of the same user-visible
// transaction. On failure the draft and question survive for retry.
func (c *Controller) SubmitAnswer(ctx context.Context) error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return ErrNoCurrentQuestion
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.submitting = true
	questionID := c.current.QuestionID
	sessionID := c.sessionID
	text := strings.TrimSpace(c.draft)
	c.mu.Unlock()

	c.capture.StopListening()
	c.setState(StateSubmitting)
	c.status("Submitting your answer for evaluation...")

	err := c.api.Answer(ctx, sessionID, protocol.AnswerRequest{
		QuestionID: questionID,
		AnswerText: text,
	})
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		c.setState(StateActive)
		c.status(err.Error())
		return err
	}

	c.mu.Lock()
	c.draft = ""
	c.answered++
	c.submitting = false
	c.mu.Unlock()
	c.sink.DraftChanged("")
	c.emitProgress()
	c.status("Answer submitted. Fetching the next question...")

	// The advance is part of the submission transaction; a completion
	// signal here is success, handled inside RequestNextQuestion.
	return c.RequestNextQuestion(ctx)
}

// End requests the summary and marks the session completed. Failure is
// reported but does not roll the session back to active.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	already := c.summary != nil
	c.mu.Unlock()
	if sessionID == "" {
		return ErrNoSession
	}
	if already {
		c.setState(StateCompleted)
		return nil
	}

	c.capture.StopListening()
	c.status("Interview complete. Generating summary...")

	res, err := c.api.End(ctx, sessionID)

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.setState(StateCompleted)

	if err != nil {
		c.status(err.Error())
		return err
	}

	c.mu.Lock()
	summary := res.Summary
	c.summary = &summary
	c.mu.Unlock()
	c.sink.SummaryReady(summary)
	return nil
}

// FetchReport reads the persisted report for any session id. It does not
// touch controller state, so it works after the controller that produced
// the session is gone.
func (c *Controller) FetchReport(ctx context.Context, sessionID string) (protocol.Report, error) {
	return c.api.Report(ctx, sessionID)
}

// ToggleVoice starts or stops speech capture.
func (c *Controller) ToggleVoice(ctx context.Context) error {
	if c.capture.Listening() {
		c.capture.StopListening()
		return nil
	}
	if !c.capture.Supported() {
		c.status("Speech recognition is not available on this host")
		return nil
	}
	if err := c.capture.StartListening(ctx); err != nil {
		c.status(err.Error())
		return err
	}
	c.sink.ListeningChanged(true)
	return nil
}

// SetDraft replaces the draft with typed input.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	draft := c.draft
	c.mu.Unlock()
	c.sink.DraftChanged(draft)
}

// InterimTranscript implements voice.Sink; interim results are status-only.
func (c *Controller) InterimTranscript(text string) {
	c.status("Listening: " + text)
}

// FinalTranscript implements voice.Sink and appends a finalized fragment to
// the draft with a single separating space.
func (c *Controller) FinalTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.draft == "" {
		c.draft = text
	} else {
		c.draft = c.draft + " " + text
	}
	draft := c.draft
	c.mu.Unlock()
	c.sink.DraftChanged(draft)
}

// CaptureStopped implements voice.Sink. Voice failures are recoverable and
// never invalidate the session.
func (c *Controller) CaptureStopped(detail string) {
	c.sink.ListeningChanged(false)
	if detail != "" {
		c.status("Voice capture stopped: " + detail)
	}
}

func (c *Controller) failValidation(msg string) error {
	c.status(msg)
	return errors.New(msg)
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.sink.StateChanged(state)
}

func (c *Controller) status(text string) {
	c.sink.StatusText(text)
}

func (c *Controller) emitProgress() {
	c.mu.Lock()
	snap := progress.Track(c.answered, c.totalQuestions, c.current != nil)
	c.mu.Unlock()
	c.sink.ProgressChanged(snap)
}

type nopSink struct{}

func (nopSink) StateChanged(State)                {}
func (nopSink) StatusText(string)                 {}
func (nopSink) QuestionShown(protocol.Question)   {}
func (nopSink) DraftChanged(string)               {}
func (nopSink) ProgressChanged(progress.Snapshot) {}
func (nopSink) ListeningChanged(bool)             {}
func (nopSink) SummaryReady(protocol.Summary)     {}
