package evaluate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/greenroomhq/greenroom/internal/config"
)

func TestTotalQuestions(t *testing.T) {
	cases := []struct {
		name       string
		startRound int
		budget     int
		want       int
	}{
		{"budget caps full interview", 1, 5, 5},
		{"late start caps by remaining rounds", 3, 10, 4},
		{"round two remainder", 2, 20, 10},
		{"zero budget floors to one", 1, 0, 1},
		{"invalid round falls back to full sequence", 9, 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalQuestions(tc.startRound, tc.budget); got != tc.want {
				t.Fatalf("TotalQuestions(%d, %d) = %d, want %d", tc.startRound, tc.budget, got, tc.want)
			}
		})
	}
}

func TestRoundForIndex(t *testing.T) {
	cases := []struct {
		index      int
		startRound int
		want       string
	}{
		{0, 1, "screening"},
		{3, 1, "screening"},
		{4, 1, "deep_dive"},
		{9, 1, "deep_dive"},
		{10, 1, "challenge"},
		{0, 2, "deep_dive"},
		{6, 2, "challenge"},
		{99, 1, "challenge"},
	}
	for _, tc := range cases {
		got := RoundForIndex(tc.index, tc.startRound)
		if got.Name != tc.want {
			t.Fatalf("RoundForIndex(%d, %d) = %s, want %s", tc.index, tc.startRound, got.Name, tc.want)
		}
	}
}

func TestOverallScoreBounds(t *testing.T) {
	rubric, _ := NewMockEngine().GenerateRubric(context.Background(), "", "")
	all := func(v int) map[string]int {
		m := map[string]int{}
		for _, c := range rubric.Competencies {
			m[c.Name] = v
		}
		return m
	}
	if got := OverallScore(all(4), rubric); got != 100 {
		t.Fatalf("all fours = %v, want 100", got)
	}
	if got := OverallScore(all(1), rubric); got != 25 {
		t.Fatalf("all ones = %v, want 25", got)
	}
	if got := OverallScore(map[string]int{}, rubric); got != 0 {
		t.Fatalf("no scores = %v, want 0", got)
	}
}

func TestMockScoringIsDeterministic(t *testing.T) {
	eng := NewMockEngine()
	rubric, _ := eng.GenerateRubric(context.Background(), "", "")
	req := ScoreRequest{SessionID: "s-1", QuestionID: "q1", Question: "Q", Answer: "A", Rubric: rubric}

	first, err := eng.ScoreAnswer(context.Background(), req)
	if err != nil {
		t.Fatalf("ScoreAnswer: %v", err)
	}
	second, _ := eng.ScoreAnswer(context.Background(), req)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("mock scoring not deterministic:\n%+v\n%+v", first, second)
	}

	if len(first.PersonaResults) != 3 {
		t.Fatalf("persona results = %d, want 3", len(first.PersonaResults))
	}
	for persona, res := range first.PersonaResults {
		for name, score := range res.CompetencyScores {
			if score < 1 || score > 4 {
				t.Fatalf("%s/%s score %d out of range", persona, name, score)
			}
		}
		if res.Overall < 25 || res.Overall > 100 {
			t.Fatalf("%s overall %v out of range", persona, res.Overall)
		}
	}
}

func TestAggregateRollsUpScores(t *testing.T) {
	rubric := Rubric{Competencies: []Competency{
		{Name: "A", Weight: 0.5},
		{Name: "B", Weight: 0.5},
	}}
	mk := func(a, b int) PersonaResult {
		scores := map[string]int{"A": a, "B": b}
		return PersonaResult{
			CompetencyScores: scores,
			Overall:          OverallScore(scores, rubric),
		}
	}
	evals := []AnswerEvaluation{
		{QuestionID: "q1", PersonaResults: map[string]PersonaResult{
			"neutral": mk(4, 4),
			"hostile": mk(2, 2),
		}},
		{QuestionID: "q2", PersonaResults: map[string]PersonaResult{
			"neutral": mk(2, 2),
			"hostile": mk(4, 4),
		}},
	}

	agg := Aggregate(evals, rubric)
	if len(agg.OverallScores) != 2 {
		t.Fatalf("overall scores = %v", agg.OverallScores)
	}
	// every persona/question pair averages out to 3 on the 1..4 scale
	if agg.CompetencyAvgs["A"] != 75 || agg.CompetencyAvgs["B"] != 75 {
		t.Fatalf("competency avgs = %v", agg.CompetencyAvgs)
	}
	if agg.PersonaAvgs["neutral"] != 75 || agg.PersonaAvgs["hostile"] != 75 {
		t.Fatalf("persona avgs = %v", agg.PersonaAvgs)
	}
	if agg.OverallScore != 75 {
		t.Fatalf("overall = %v, want 75", agg.OverallScore)
	}
}

func TestHeuristicSummaryPicksTopAndBottom(t *testing.T) {
	agg := Aggregates{
		OverallScore: 70,
		CompetencyAvgs: map[string]float64{
			"A": 90, "B": 80, "C": 70, "D": 60, "E": 50, "F": 40,
		},
	}
	sum := HeuristicSummary(agg)
	if !reflect.DeepEqual(sum.Strengths, []string{"A", "B", "C"}) {
		t.Fatalf("strengths = %v", sum.Strengths)
	}
	if !reflect.DeepEqual(sum.Weaknesses, []string{"D", "E", "F"}) {
		t.Fatalf("weaknesses = %v", sum.Weaknesses)
	}
	if sum.OverallScore != 70 {
		t.Fatalf("overall = %v", sum.OverallScore)
	}
}

func TestForProvider(t *testing.T) {
	cfg := config.Config{
		OpenAIBaseURL: "https://api.openai.com",
		GeminiBaseURL: "https://generativelanguage.googleapis.com",
	}

	eng, err := ForProvider("mock", "", cfg)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if _, ok := eng.(*MockEngine); !ok {
		t.Fatalf("mock provider returned %T", eng)
	}

	if _, err := ForProvider("openai", "", cfg); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("openai without key: %v", err)
	}
	if _, err := ForProvider("gemini", "", cfg); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("gemini without key: %v", err)
	}
	if _, err := ForProvider("carrier-pigeon", "", cfg); err == nil {
		t.Fatal("unknown provider accepted")
	}

	eng, err = ForProvider("auto", "", cfg)
	if err != nil {
		t.Fatalf("auto: %v", err)
	}
	if _, ok := eng.(*MockEngine); !ok {
		t.Fatalf("auto without keys returned %T, want mock", eng)
	}

	cfg.OpenAIAPIKey = "sk-test"
	eng, err = ForProvider("auto", "", cfg)
	if err != nil {
		t.Fatalf("auto with key: %v", err)
	}
	if _, ok := eng.(*chatEngine); !ok {
		t.Fatalf("auto with key returned %T, want chat engine", eng)
	}
}
