package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

// PostgresStore persists sessions in Postgres. Scalar fields get columns so
// the dashboard can list without decoding; the interview transcript and
// evaluations are stored as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSessionSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSessionSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			start_round INTEGER NOT NULL DEFAULT 1,
			job_spec TEXT NOT NULL DEFAULT '',
			cv_text TEXT NOT NULL DEFAULT '',
			total_questions INTEGER NOT NULL DEFAULT 0,
			rubric JSONB NOT NULL DEFAULT '{}'::jsonb,
			questions JSONB NOT NULL DEFAULT '[]'::jsonb,
			answers JSONB NOT NULL DEFAULT '[]'::jsonb,
			evaluations JSONB NOT NULL DEFAULT '[]'::jsonb,
			report JSONB NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_created ON interview_sessions (created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init session schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, session Session) error {
	rubric, err := json.Marshal(session.Rubric)
	if err != nil {
		return fmt.Errorf("marshal rubric: %w", err)
	}
	questions, err := json.Marshal(orEmpty(session.Questions))
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(orEmpty(session.Answers))
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	evaluations, err := json.Marshal(orEmpty(session.Evaluations))
	if err != nil {
		return fmt.Errorf("marshal evaluations: %w", err)
	}
	var report []byte
	if session.Report != nil {
		report, err = json.Marshal(session.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interview_sessions (
			id, created_at, updated_at, status, provider, start_round, job_spec, cv_text,
			total_questions, rubric, questions, answers, evaluations, report
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
		)
		ON CONFLICT (id) DO UPDATE SET
			updated_at=EXCLUDED.updated_at,
			status=EXCLUDED.status,
			provider=EXCLUDED.provider,
			start_round=EXCLUDED.start_round,
			job_spec=EXCLUDED.job_spec,
			cv_text=EXCLUDED.cv_text,
			total_questions=EXCLUDED.total_questions,
			rubric=EXCLUDED.rubric,
			questions=EXCLUDED.questions,
			answers=EXCLUDED.answers,
			evaluations=EXCLUDED.evaluations,
			report=EXCLUDED.report`,
		session.ID,
		session.CreatedAt,
		session.UpdatedAt,
		string(session.Status),
		session.Provider,
		session.StartRound,
		session.JobSpec,
		session.CVText,
		session.TotalQuestions,
		rubric,
		questions,
		answers,
		evaluations,
		report,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at, status, provider, start_round, job_spec, cv_text,
		        total_questions, rubric, questions, answers, evaluations, report
		   FROM interview_sessions WHERE id=$1`,
		id,
	)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, updated_at, status, provider, start_round, job_spec, cv_text,
		        total_questions, rubric, questions, answers, evaluations, report
		   FROM interview_sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		session     Session
		status      string
		rubric      []byte
		questions   []byte
		answers     []byte
		evaluations []byte
		report      []byte
	)
	if err := row.Scan(
		&session.ID,
		&session.CreatedAt,
		&session.UpdatedAt,
		&status,
		&session.Provider,
		&session.StartRound,
		&session.JobSpec,
		&session.CVText,
		&session.TotalQuestions,
		&rubric,
		&questions,
		&answers,
		&evaluations,
		&report,
	); err != nil {
		return Session{}, err
	}
	session.Status = protocol.SessionStatus(status)
	if err := json.Unmarshal(rubric, &session.Rubric); err != nil {
		return Session{}, fmt.Errorf("decode rubric: %w", err)
	}
	if err := json.Unmarshal(questions, &session.Questions); err != nil {
		return Session{}, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(answers, &session.Answers); err != nil {
		return Session{}, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal(evaluations, &session.Evaluations); err != nil {
		return Session{}, fmt.Errorf("decode evaluations: %w", err)
	}
	if len(report) > 0 {
		var r protocol.Report
		if err := json.Unmarshal(report, &r); err != nil {
			return Session{}, fmt.Errorf("decode report: %w", err)
		}
		session.Report = &r
	}
	return session, nil
}

// orEmpty keeps JSONB columns as [] instead of null for nil slices.
func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
