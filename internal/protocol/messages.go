package protocol

import "time"

// DetailInterviewComplete is the detail string the service returns from
// next_question once the question budget is exhausted. Clients treat it as
// completion, not failure.
const DetailInterviewComplete = "Interview already complete"

// DetailSessionNotActive is returned when a call targets a session that has
// already been completed.
const DetailSessionNotActive = "Session is not active"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

type StartRequest struct {
	JobSpec    string `json:"job_spec"`
	CVText     string `json:"cv_text"`
	Provider   string `json:"provider"`
	APIKey     string `json:"api_key,omitempty"`
	StartRound int    `json:"start_round,omitempty"`
}

type StartResponse struct {
	SessionID      string `json:"session_id"`
	TotalQuestions int    `json:"total_questions"`
}

type Question struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Round      string `json:"round"`
	Persona    string `json:"persona"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

type AnswerResponse struct {
	OK bool `json:"ok"`
}

type PersonaFeedback struct {
	Persona   string   `json:"persona"`
	Positives []string `json:"positives"`
	Concerns  []string `json:"concerns"`
	NextStep  string   `json:"next_step,omitempty"`
}

type Summary struct {
	OverallScore    float64           `json:"overall_score"`
	Strengths       []string          `json:"strengths"`
	Weaknesses      []string          `json:"weaknesses"`
	PersonaFeedback []PersonaFeedback `json:"persona_feedback"`
}

// ReportPaths lists the chart assets generated alongside a report, relative
// to the service's report asset root.
type ReportPaths struct {
	CompetencyRadar   string `json:"competency_radar"`
	ScoreOverTime     string `json:"score_over_time"`
	PersonaComparison string `json:"persona_comparison"`
}

type EndResponse struct {
	Summary     Summary     `json:"summary"`
	ReportPaths ReportPaths `json:"report_paths"`
}

// Report is the extended read model served by GET /sessions/{id}/report.
type Report struct {
	SessionID       string             `json:"session_id"`
	OverallScore    float64            `json:"overall_score"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	PersonaFeedback []PersonaFeedback  `json:"persona_feedback"`
	CompetencyAvgs  map[string]float64 `json:"competency_avgs"`
	PersonaAvgs     map[string]float64 `json:"persona_avgs"`
	OverallScores   []float64          `json:"overall_scores"`
	ReportPaths     ReportPaths        `json:"report_paths"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// SessionSummary is the dashboard list item served by GET /sessions.
type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	CreatedAt    time.Time     `json:"created_at"`
	JobSpec      string        `json:"job_spec"`
	Status       SessionStatus `json:"status"`
	OverallScore *float64      `json:"overall_score,omitempty"`
}

// SessionSnapshot is the per-session read model served by GET /sessions/{id}.
type SessionSnapshot struct {
	SessionID      string        `json:"session_id"`
	CreatedAt      time.Time     `json:"created_at"`
	Status         SessionStatus `json:"status"`
	Provider       string        `json:"provider"`
	StartRound     int           `json:"start_round"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
}

type UploadResponse struct {
	TextPreview string `json:"text_preview"`
}

// ErrorDetail is the error envelope used on every non-2xx response.
type ErrorDetail struct {
	Detail string `json:"detail"`
}
