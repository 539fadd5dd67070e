package store

import (
	"context"
	"errors"
	"time"

	"github.com/greenroomhq/greenroom/internal/config"
	"github.com/greenroomhq/greenroom/internal/evaluate"
	"github.com/greenroomhq/greenroom/internal/protocol"
)

var ErrNotFound = errors.New("session not found")

// Answer is one submitted answer keyed to its question.
type Answer struct {
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Session is the full persisted state of one interview.
type Session struct {
	ID             string                      `json:"session_id"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	Status         protocol.SessionStatus      `json:"status"`
	Provider       string                      `json:"provider"`
	StartRound     int                         `json:"start_round"`
	JobSpec        string                      `json:"job_spec"`
	CVText         string                      `json:"cv_text"`
	TotalQuestions int                         `json:"total_questions"`
	Rubric         evaluate.Rubric             `json:"rubric"`
	Questions      []protocol.Question         `json:"questions"`
	Answers        []Answer                    `json:"answers"`
	Evaluations    []evaluate.AnswerEvaluation `json:"evaluations"`
	Report         *protocol.Report            `json:"report,omitempty"`
}

// Store persists interview sessions. List returns sessions newest first.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context) ([]Session, error)
	Close() error
}

// Open picks the backing store: Postgres when DATABASE_URL is set, otherwise
// in-process memory.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.DatabaseURL != "" {
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	}
	return NewMemoryStore(), nil
}
