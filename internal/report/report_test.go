package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/greenroomhq/greenroom/internal/evaluate"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/store"
)

func finishedSession(t *testing.T) store.Session {
	t.Helper()
	eng := evaluate.NewMockEngine()
	rubric, err := eng.GenerateRubric(context.Background(), "job", "cv")
	if err != nil {
		t.Fatalf("GenerateRubric: %v", err)
	}
	sess := store.Session{
		ID:             "s-report",
		Status:         protocol.SessionCompleted,
		JobSpec:        "Backend engineer",
		TotalQuestions: 3,
		Rubric:         rubric,
	}
	for _, qid := range []string{"q1", "q2", "q3"} {
		eval, err := eng.ScoreAnswer(context.Background(), evaluate.ScoreRequest{
			SessionID:  sess.ID,
			QuestionID: qid,
			Question:   "Q",
			Answer:     "A",
			Rubric:     rubric,
		})
		if err != nil {
			t.Fatalf("ScoreAnswer: %v", err)
		}
		sess.Evaluations = append(sess.Evaluations, eval)
	}
	return sess
}

func TestBuildWritesChartsAndRollups(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir)
	sess := finishedSession(t)

	rep, err := b.Build(context.Background(), evaluate.NewMockEngine(), sess)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if rep.SessionID != "s-report" {
		t.Fatalf("session id = %q", rep.SessionID)
	}
	if len(rep.OverallScores) != 3 {
		t.Fatalf("overall scores = %v", rep.OverallScores)
	}
	if len(rep.CompetencyAvgs) != 6 {
		t.Fatalf("competency avgs = %v", rep.CompetencyAvgs)
	}
	if len(rep.PersonaAvgs) != 3 {
		t.Fatalf("persona avgs = %v", rep.PersonaAvgs)
	}
	if len(rep.Strengths) != 3 || len(rep.Weaknesses) != 3 {
		t.Fatalf("strengths/weaknesses = %v / %v", rep.Strengths, rep.Weaknesses)
	}
	if rep.OverallScore < 25 || rep.OverallScore > 100 {
		t.Fatalf("overall = %v", rep.OverallScore)
	}
	if rep.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not set")
	}

	for _, rel := range []string{
		rep.ReportPaths.CompetencyRadar,
		rep.ReportPaths.ScoreOverTime,
		rep.ReportPaths.PersonaComparison,
	} {
		if !strings.HasPrefix(rel, "reports/s-report/") {
			t.Fatalf("asset path = %q", rel)
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if !strings.HasPrefix(string(data), "<svg") {
			t.Fatalf("%s is not an SVG document", rel)
		}
	}
}

func TestBuildFallsBackToHeuristicSummary(t *testing.T) {
	b := NewBuilder(t.TempDir())
	sess := finishedSession(t)

	rep, err := b.Build(context.Background(), failingSummaryEngine{Engine: evaluate.NewMockEngine()}, sess)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Strengths) != 3 {
		t.Fatalf("heuristic strengths = %v", rep.Strengths)
	}
}

type failingSummaryEngine struct {
	evaluate.Engine
}

func (failingSummaryEngine) BuildSummary(context.Context, string, evaluate.Aggregates) (protocol.Summary, error) {
	return protocol.Summary{}, context.DeadlineExceeded
}

func TestAssetPathRejectsTraversal(t *testing.T) {
	cases := []struct {
		session string
		asset   string
		ok      bool
	}{
		{"s-1", "competency_radar.svg", true},
		{"s-1", "../secret", false},
		{"../s-1", "chart.svg", false},
		{"s-1", "a/b.svg", false},
		{"", "chart.svg", false},
		{"s-1", "", false},
	}
	for _, tc := range cases {
		_, err := AssetPath("data", tc.session, tc.asset)
		if (err == nil) != tc.ok {
			t.Fatalf("AssetPath(%q, %q) err = %v, want ok=%v", tc.session, tc.asset, err, tc.ok)
		}
	}
}
