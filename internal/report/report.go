package report

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/evaluate"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/store"
)

// Builder turns a finished session into a report plus chart assets on disk.
type Builder struct {
	dataDir string
}

func NewBuilder(dataDir string) *Builder {
	return &Builder{dataDir: dataDir}
}

// Build aggregates the session's evaluations, asks the engine for a summary
// (falling back to the heuristic one on failure), and writes the chart
// assets under <dataDir>/reports/<session id>/.
func (b *Builder) Build(ctx context.Context, eng evaluate.Engine, sess store.Session) (protocol.Report, error) {
	agg := evaluate.Aggregate(sess.Evaluations, sess.Rubric)

	summary, err := eng.BuildSummary(ctx, sess.JobSpec, agg)
	if err != nil {
		log.Printf("report: summary generation failed for session %s, using heuristic fallback: %v", sess.ID, err)
		summary = evaluate.HeuristicSummary(agg)
	}

	paths, err := b.writeCharts(sess.ID, agg)
	if err != nil {
		return protocol.Report{}, err
	}

	return protocol.Report{
		SessionID:       sess.ID,
		OverallScore:    summary.OverallScore,
		Strengths:       summary.Strengths,
		Weaknesses:      summary.Weaknesses,
		PersonaFeedback: summary.PersonaFeedback,
		CompetencyAvgs:  agg.CompetencyAvgs,
		PersonaAvgs:     agg.PersonaAvgs,
		OverallScores:   agg.OverallScores,
		ReportPaths:     paths,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func (b *Builder) writeCharts(sessionID string, agg evaluate.Aggregates) (protocol.ReportPaths, error) {
	dir := filepath.Join(b.dataDir, "reports", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return protocol.ReportPaths{}, fmt.Errorf("create report dir: %w", err)
	}

	assets := []struct {
		name string
		svg  string
	}{
		{"competency_radar.svg", radarSVG(agg.CompetencyAvgs)},
		{"score_over_time.svg", lineSVG(agg.OverallScores)},
		{"persona_comparison.svg", barSVG(agg.PersonaAvgs)},
	}
	for _, a := range assets {
		if err := os.WriteFile(filepath.Join(dir, a.name), []byte(a.svg), 0o644); err != nil {
			return protocol.ReportPaths{}, fmt.Errorf("write %s: %w", a.name, err)
		}
	}

	rel := func(name string) string {
		return "reports/" + sessionID + "/" + name
	}
	return protocol.ReportPaths{
		CompetencyRadar:   rel("competency_radar.svg"),
		ScoreOverTime:     rel("score_over_time.svg"),
		PersonaComparison: rel("persona_comparison.svg"),
	}, nil
}

// AssetPath resolves a report asset to a path under dataDir. It rejects
// names that escape the report directory.
func AssetPath(dataDir, sessionID, asset string) (string, error) {
	if strings.Contains(sessionID, "/") || strings.Contains(sessionID, "\\") ||
		strings.Contains(asset, "/") || strings.Contains(asset, "\\") ||
		sessionID == "" || asset == "" ||
		strings.Contains(sessionID, "..") || strings.Contains(asset, "..") {
		return "", fmt.Errorf("invalid report asset %q/%q", sessionID, asset)
	}
	return filepath.Join(dataDir, "reports", sessionID, asset), nil
}
