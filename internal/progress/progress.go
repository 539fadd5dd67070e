// Package progress maps answered/total question counts onto the progress
// presentation shared by every client surface.
package progress

import "fmt"

type StepState string

const (
	StepPending  StepState = "pending"
	StepActive   StepState = "active"
	StepComplete StepState = "complete"
)

type Snapshot struct {
	Answered int
	Total    int
	Percent  float64
	Steps    []StepState
}

// Track computes the progress snapshot for answered submissions out of
// total questions. The bar denominator is total-1 segments so a full bar
// coincides with submitting the last answer rather than with the final,
// still unanswered, question being shown. hasCurrent marks the next step
// as active while a question is on screen.
func Track(answered, total int, hasCurrent bool) Snapshot {
	if total < 1 {
		total = 1
	}
	if answered < 0 {
		answered = 0
	}
	if answered > total {
		answered = total
	}

	segments := total - 1
	if segments < 1 {
		segments = 1
	}
	percent := float64(answered) / float64(segments) * 100
	if percent > 100 {
		percent = 100
	}

	steps := make([]StepState, total)
	for i := range steps {
		switch {
		case i < answered:
			steps[i] = StepComplete
		case i == answered && hasCurrent:
			steps[i] = StepActive
		default:
			steps[i] = StepPending
		}
	}

	return Snapshot{Answered: answered, Total: total, Percent: percent, Steps: steps}
}

// Label renders the textual progress line, e.g. "2 of 5 answered".
func (s Snapshot) Label() string {
	return fmt.Sprintf("%d of %d answered", s.Answered, s.Total)
}
