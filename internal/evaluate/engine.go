package evaluate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/greenroomhq/greenroom/internal/config"
	"github.com/greenroomhq/greenroom/internal/protocol"
)

// Rubric is the competency grid a session is scored against. It is generated
// once at session start from the job spec and CV.
type Rubric struct {
	Competencies []Competency `json:"competencies"`
}

// Competency is one scored dimension with a relative weight.
type Competency struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Signals string  `json:"signals,omitempty"`
}

// QuestionRequest carries the context an engine needs to produce the next
// question. QuestionID is assigned by the caller, not the engine.
type QuestionRequest struct {
	QuestionID string
	JobSpec    string
	CVText     string
	Rubric     Rubric
	Round      Round
	Persona    string
	Index      int
	Previous   []protocol.Question
}

// ScoreRequest asks an engine to evaluate one answer against the rubric.
type ScoreRequest struct {
	SessionID  string
	QuestionID string
	Question   string
	Answer     string
	Rubric     Rubric
}

// PersonaResult is one persona's read on a single answer. Competency scores
// are on a 1..4 scale.
type PersonaResult struct {
	CompetencyScores map[string]int `json:"competency_scores"`
	Positives        []string       `json:"positives"`
	Concerns         []string       `json:"concerns"`
	NextStep         string         `json:"next_step,omitempty"`
	Overall          float64        `json:"overall"`
}

// AnswerEvaluation holds the per-persona results for one answered question.
type AnswerEvaluation struct {
	QuestionID     string                   `json:"question_id"`
	PersonaResults map[string]PersonaResult `json:"persona_results"`
}

// Engine produces interview content and evaluations. Implementations must be
// safe for concurrent use across sessions.
type Engine interface {
	// Verify checks the engine is usable (credentials, reachability) before a
	// session commits to it.
	Verify(ctx context.Context) error
	GenerateRubric(ctx context.Context, jobSpec, cvText string) (Rubric, error)
	GenerateQuestion(ctx context.Context, req QuestionRequest) (protocol.Question, error)
	ScoreAnswer(ctx context.Context, req ScoreRequest) (AnswerEvaluation, error)
	BuildSummary(ctx context.Context, jobSpec string, agg Aggregates) (protocol.Summary, error)
}

// ForProvider builds the engine backing a session. "auto" picks the first
// configured LLM provider and falls back to the mock engine. An explicit LLM
// provider without a key is an error.
func ForProvider(provider, apiKey string, cfg config.Config) (Engine, error) {
	switch provider {
	case "", "auto":
		if key := firstNonEmpty(apiKey, cfg.OpenAIAPIKey); key != "" {
			return newChatEngine(openAIDialect(cfg, key)), nil
		}
		if cfg.GeminiAPIKey != "" {
			return newChatEngine(geminiDialect(cfg, cfg.GeminiAPIKey)), nil
		}
		return NewMockEngine(), nil
	case "mock":
		return NewMockEngine(), nil
	case "openai":
		key := firstNonEmpty(apiKey, cfg.OpenAIAPIKey)
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return newChatEngine(openAIDialect(cfg, key)), nil
	case "gemini":
		key := firstNonEmpty(apiKey, cfg.GeminiAPIKey)
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return newChatEngine(geminiDialect(cfg, key)), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// OverallScore maps 1..4 competency scores onto a 0..100 scale using the
// rubric weights, rounded to two decimals.
func OverallScore(scores map[string]int, rubric Rubric) float64 {
	var weighted, totalWeight float64
	for _, c := range rubric.Competencies {
		score, ok := scores[c.Name]
		if !ok {
			continue
		}
		weighted += float64(score) * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return round2(weighted / totalWeight * 25)
}

// Aggregates are the cross-question rollups a summary and report are built
// from. OverallScores is ordered by question.
type Aggregates struct {
	OverallScore    float64
	CompetencyAvgs  map[string]float64
	PersonaAvgs     map[string]float64
	OverallScores   []float64
	PersonaFeedback []protocol.PersonaFeedback
}

// Aggregate rolls per-answer evaluations up into session-level numbers.
// Evaluations must be in question order.
func Aggregate(evals []AnswerEvaluation, rubric Rubric) Aggregates {
	agg := Aggregates{
		CompetencyAvgs: map[string]float64{},
		PersonaAvgs:    map[string]float64{},
	}
	if len(evals) == 0 {
		return agg
	}

	compTotals := map[string]float64{}
	compCounts := map[string]int{}
	personaTotals := map[string]float64{}
	personaCounts := map[string]int{}
	feedback := map[string]*protocol.PersonaFeedback{}

	for _, ev := range evals {
		var qTotal float64
		var qCount int
		for persona, res := range ev.PersonaResults {
			qTotal += res.Overall
			qCount++
			personaTotals[persona] += res.Overall
			personaCounts[persona]++
			for name, score := range res.CompetencyScores {
				compTotals[name] += float64(score)
				compCounts[name]++
			}
			fb, ok := feedback[persona]
			if !ok {
				fb = &protocol.PersonaFeedback{Persona: persona}
				feedback[persona] = fb
			}
			fb.Positives = appendCapped(fb.Positives, res.Positives, 3)
			fb.Concerns = appendCapped(fb.Concerns, res.Concerns, 3)
			if fb.NextStep == "" {
				fb.NextStep = res.NextStep
			}
		}
		if qCount > 0 {
			agg.OverallScores = append(agg.OverallScores, round2(qTotal/float64(qCount)))
		}
	}

	for name, total := range compTotals {
		agg.CompetencyAvgs[name] = round2(total / float64(compCounts[name]) * 25)
	}
	for persona, total := range personaTotals {
		agg.PersonaAvgs[persona] = round2(total / float64(personaCounts[persona]))
	}

	var sum float64
	for _, s := range agg.OverallScores {
		sum += s
	}
	if len(agg.OverallScores) > 0 {
		agg.OverallScore = round2(sum / float64(len(agg.OverallScores)))
	}

	for _, p := range Personas() {
		if fb, ok := feedback[p.Name]; ok {
			agg.PersonaFeedback = append(agg.PersonaFeedback, *fb)
		}
	}
	return agg
}

// HeuristicSummary derives a summary from aggregates alone: strengths are
// the top three competencies by average, weaknesses the bottom three. It is
// the fallback when an LLM summary fails.
func HeuristicSummary(agg Aggregates) protocol.Summary {
	type compAvg struct {
		name string
		avg  float64
	}
	ranked := make([]compAvg, 0, len(agg.CompetencyAvgs))
	for name, avg := range agg.CompetencyAvgs {
		ranked = append(ranked, compAvg{name, avg})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].avg != ranked[j].avg {
			return ranked[i].avg > ranked[j].avg
		}
		return ranked[i].name < ranked[j].name
	})

	summary := protocol.Summary{
		OverallScore:    agg.OverallScore,
		Strengths:       []string{},
		Weaknesses:      []string{},
		PersonaFeedback: agg.PersonaFeedback,
	}
	for i, c := range ranked {
		if i < 3 {
			summary.Strengths = append(summary.Strengths, c.name)
		}
		if i >= len(ranked)-3 && len(ranked) > 3 {
			summary.Weaknesses = append(summary.Weaknesses, c.name)
		}
	}
	if len(ranked) <= 3 {
		for i := len(ranked) - 1; i >= 0; i-- {
			summary.Weaknesses = append(summary.Weaknesses, ranked[i].name)
		}
	}
	return summary
}

func appendCapped(dst []string, src []string, limit int) []string {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		if s == "" || contains(dst, s) {
			continue
		}
		dst = append(dst, s)
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
