package evaluate

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

// mockCompetencies is the fixed rubric the mock engine scores against.
var mockCompetencies = []Competency{
	{Name: "Problem Solving", Weight: 0.18, Signals: "Breaks problems down, names trade-offs, reasons from constraints."},
	{Name: "Communication", Weight: 0.16, Signals: "Structured answers, concrete examples, audience awareness."},
	{Name: "Technical Depth", Weight: 0.18, Signals: "Accurate detail, first-hand knowledge, correct terminology."},
	{Name: "Collaboration", Weight: 0.14, Signals: "Credits others, handles disagreement, cross-team work."},
	{Name: "Product Thinking", Weight: 0.18, Signals: "Connects work to user and business outcomes."},
	{Name: "Ownership", Weight: 0.16, Signals: "Takes responsibility, follows through, learns from failure."},
}

var mockQuestionBank = map[string][]string{
	"screening": {
		"Walk me through your background and what drew you to this role.",
		"Which project on your CV best matches this job spec, and why?",
		"What does a typical week look like in your current position?",
		"What are you looking for in your next role?",
	},
	"deep_dive": {
		"Pick the hardest technical problem you solved recently. How did you approach it?",
		"Describe a decision where you had to trade correctness against delivery time.",
		"Tell me about a system you designed. What would you change today?",
		"How do you validate that a change you shipped actually worked?",
		"Describe a time a project went sideways. What did you do?",
		"What is a strong technical opinion you hold, and what evidence backs it?",
	},
	"challenge": {
		"Your answer earlier mentioned clear success. What nearly made it fail?",
		"Convince me the approach you described was better than the obvious alternative.",
		"Where is the weakest part of your experience relative to this job spec?",
		"If we rejected you today, what would the honest reason be?",
	},
}

var mockPersonaFeedback = map[string]struct {
	positive string
	concern  string
}{
	"positive": {
		positive: "Clear enthusiasm and a constructive framing throughout.",
		concern:  "Could anchor claims with one more concrete metric.",
	},
	"neutral": {
		positive: "Answer addressed the question with relevant experience.",
		concern:  "Some statements lacked supporting evidence.",
	},
	"hostile": {
		positive: "Held up under pushback without becoming defensive.",
		concern:  "Vague on specifics when pressed for detail.",
	},
}

const mockNextStep = "Prepare a STAR story with metrics for a recent project."

// MockEngine is a deterministic engine for development and tests. The same
// session and question ids always produce the same questions and scores.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (e *MockEngine) Verify(context.Context) error { return nil }

func (e *MockEngine) GenerateRubric(context.Context, string, string) (Rubric, error) {
	comps := make([]Competency, len(mockCompetencies))
	copy(comps, mockCompetencies)
	return Rubric{Competencies: comps}, nil
}

func (e *MockEngine) GenerateQuestion(_ context.Context, req QuestionRequest) (protocol.Question, error) {
	bank := mockQuestionBank[req.Round.Name]
	if len(bank) == 0 {
		bank = mockQuestionBank["screening"]
	}
	text := bank[req.Index%len(bank)]
	return protocol.Question{
		QuestionID: req.QuestionID,
		Text:       text,
		Round:      req.Round.Label,
		Persona:    req.Persona,
	}, nil
}

func (e *MockEngine) ScoreAnswer(_ context.Context, req ScoreRequest) (AnswerEvaluation, error) {
	eval := AnswerEvaluation{
		QuestionID:     req.QuestionID,
		PersonaResults: map[string]PersonaResult{},
	}
	for _, persona := range Personas() {
		rng := seededRand(req.SessionID, req.QuestionID, persona.Name)
		scores := map[string]int{}
		for _, c := range req.Rubric.Competencies {
			scores[c.Name] = 1 + rng.Intn(4)
		}
		fb := mockPersonaFeedback[persona.Name]
		eval.PersonaResults[persona.Name] = PersonaResult{
			CompetencyScores: scores,
			Positives:        []string{fb.positive},
			Concerns:         []string{fb.concern},
			NextStep:         mockNextStep,
			Overall:          OverallScore(scores, req.Rubric),
		}
	}
	return eval, nil
}

func (e *MockEngine) BuildSummary(_ context.Context, _ string, agg Aggregates) (protocol.Summary, error) {
	return HeuristicSummary(agg), nil
}

// seededRand derives a stable RNG from the session, question, and persona so
// mock scores are reproducible across restarts.
func seededRand(parts ...string) *rand.Rand {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			fmt.Fprint(h, ":")
		}
		fmt.Fprint(h, p)
	}
	sum := h.Sum(nil)
	seed := int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
	return rand.New(rand.NewSource(seed))
}
