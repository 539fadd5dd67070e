package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greenroomhq/greenroom/internal/evaluate"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/store"
)

const jobSpecPreviewLen = 50

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req protocol.StartRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.JobSpec = strings.TrimSpace(req.JobSpec)
	req.CVText = strings.TrimSpace(req.CVText)
	if req.JobSpec == "" {
		s.respondDetail(w, r, http.StatusBadRequest, "job_spec is required")
		return
	}
	if req.CVText == "" {
		s.respondDetail(w, r, http.StatusBadRequest, "cv_text is required")
		return
	}
	provider := protocol.NormalizeProvider(req.Provider)
	if provider == "" {
		provider = "auto"
	}
	if _, ok := protocol.LookupProvider(provider); !ok {
		s.respondDetail(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown provider %q", req.Provider))
		return
	}
	startRound := req.StartRound
	if startRound == 0 {
		startRound = 1
	}
	if startRound < 1 || startRound > 3 {
		s.respondDetail(w, r, http.StatusBadRequest, "start_round must be between 1 and 3")
		return
	}

	eng, err := evaluate.ForProvider(provider, req.APIKey, s.cfg)
	if err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := eng.Verify(r.Context()); err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rubric, err := eng.GenerateRubric(r.Context(), req.JobSpec, req.CVText)
	if err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Rubric generation failed: %v", err))
		return
	}

	now := time.Now().UTC()
	sess := store.Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         protocol.SessionActive,
		Provider:       provider,
		StartRound:     startRound,
		JobSpec:        req.JobSpec,
		CVText:         req.CVText,
		TotalQuestions: evaluate.TotalQuestions(startRound, s.cfg.QuestionBudget),
		Rubric:         rubric,
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Save session failed: %v", err))
		return
	}
	s.rememberEngine(sess.ID, eng)

	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
		s.metrics.SessionEvents.WithLabelValues("started").Inc()
	}

	respondJSON(w, http.StatusOK, protocol.StartResponse{
		SessionID:      sess.ID,
		TotalQuestions: sess.TotalQuestions,
	})
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.lockSession(id)
	defer unlock()

	sess, ok := s.loadSession(w, r, id)
	if !ok {
		return
	}
	if sess.Status != protocol.SessionActive {
		s.respondDetail(w, r, http.StatusBadRequest, protocol.DetailSessionNotActive)
		return
	}

	// a question that was issued but not yet answered is re-served as is
	if len(sess.Questions) > len(sess.Answers) {
		respondJSON(w, http.StatusOK, sess.Questions[len(sess.Questions)-1])
		return
	}
	if len(sess.Questions) >= sess.TotalQuestions {
		s.respondDetail(w, r, http.StatusBadRequest, protocol.DetailInterviewComplete)
		return
	}

	eng := s.engineFor(sess)

	index := len(sess.Questions)
	started := time.Now()
	q, err := eng.GenerateQuestion(r.Context(), evaluate.QuestionRequest{
		QuestionID: fmt.Sprintf("q%d", index+1),
		JobSpec:    sess.JobSpec,
		CVText:     sess.CVText,
		Rubric:     sess.Rubric,
		Round:      evaluate.RoundForIndex(index, sess.StartRound),
		Persona:    evaluate.DefaultPersona,
		Index:      index,
		Previous:   sess.Questions,
	})
	if err != nil {
		s.countEngineError(sess.Provider, "question")
		s.respondDetail(w, r, http.StatusBadGateway, fmt.Sprintf("Question generation failed: %v", err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveQuestionLatency(time.Since(started))
		s.metrics.SessionEvents.WithLabelValues("question_served").Inc()
	}

	sess.Questions = append(sess.Questions, q)
	sess.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Save session failed: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req protocol.AnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondDetail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	unlock := s.lockSession(id)
	defer unlock()

	sess, ok := s.loadSession(w, r, id)
	if !ok {
		return
	}
	if sess.Status != protocol.SessionActive {
		s.respondDetail(w, r, http.StatusBadRequest, protocol.DetailSessionNotActive)
		return
	}
	if len(sess.Questions) == 0 || len(sess.Questions) <= len(sess.Answers) {
		s.respondDetail(w, r, http.StatusBadRequest, "No question awaiting an answer")
		return
	}
	current := sess.Questions[len(sess.Questions)-1]
	if req.QuestionID != current.QuestionID {
		s.respondDetail(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown question id %q", req.QuestionID))
		return
	}

	eng := s.engineFor(sess)

	started := time.Now()
	eval, err := eng.ScoreAnswer(r.Context(), evaluate.ScoreRequest{
		SessionID:  sess.ID,
		QuestionID: current.QuestionID,
		Question:   current.Text,
		Answer:     req.AnswerText,
		Rubric:     sess.Rubric,
	})
	if err != nil {
		s.countEngineError(sess.Provider, "score")
		s.respondDetail(w, r, http.StatusBadGateway, fmt.Sprintf("Answer scoring failed: %v", err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveScoringLatency(time.Since(started))
		s.metrics.SessionEvents.WithLabelValues("answer_scored").Inc()
	}

	sess.Answers = append(sess.Answers, store.Answer{
		QuestionID: current.QuestionID,
		Text:       req.AnswerText,
		AnsweredAt: time.Now().UTC(),
	})
	sess.Evaluations = append(sess.Evaluations, eval)
	sess.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Save session failed: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, protocol.AnswerResponse{OK: true})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.lockSession(id)
	defer unlock()

	sess, ok := s.loadSession(w, r, id)
	if !ok {
		return
	}

	// ending twice returns the same summary
	if sess.Report != nil {
		respondJSON(w, http.StatusOK, endResponseFrom(*sess.Report))
		return
	}

	eng := s.engineFor(sess)
	rep, err := s.reports.Build(r.Context(), eng, sess)
	if err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Report generation failed: %v", err))
		return
	}

	sess.Report = &rep
	sess.Status = protocol.SessionCompleted
	sess.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Save session failed: %v", err))
		return
	}
	s.forgetEngine(sess.ID)

	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
		s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	}

	respondJSON(w, http.StatusOK, endResponseFrom(rep))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if sess.Report == nil {
		s.respondDetail(w, r, http.StatusNotFound, "Report not found")
		return
	}
	respondJSON(w, http.StatusOK, sess.Report)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.sessions.List(r.Context())
	if err != nil {
		s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("List sessions failed: %v", err))
		return
	}
	out := make([]protocol.SessionSummary, 0, len(all))
	for _, sess := range all {
		item := protocol.SessionSummary{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			JobSpec:   truncateRunes(sess.JobSpec, jobSpecPreviewLen),
			Status:    sess.Status,
		}
		if sess.Report != nil {
			score := sess.Report.OverallScore
			item.OverallScore = &score
		}
		out = append(out, item)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, protocol.SessionSnapshot{
		SessionID:      sess.ID,
		CreatedAt:      sess.CreatedAt,
		Status:         sess.Status,
		Provider:       sess.Provider,
		StartRound:     sess.StartRound,
		TotalQuestions: sess.TotalQuestions,
		AnsweredCount:  len(sess.Answers),
	})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request, id string) (store.Session, bool) {
	if strings.TrimSpace(id) == "" {
		s.respondDetail(w, r, http.StatusBadRequest, "Missing session id")
		return store.Session{}, false
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondDetail(w, r, http.StatusNotFound, "Session not found")
		} else {
			s.respondDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Load session failed: %v", err))
		}
		return store.Session{}, false
	}
	return sess, true
}

func (s *Server) countEngineError(provider, stage string) {
	if s.metrics != nil {
		s.metrics.EngineErrors.WithLabelValues(provider, stage).Inc()
	}
}

func endResponseFrom(rep protocol.Report) protocol.EndResponse {
	return protocol.EndResponse{
		Summary: protocol.Summary{
			OverallScore:    rep.OverallScore,
			Strengths:       rep.Strengths,
			Weaknesses:      rep.Weaknesses,
			PersonaFeedback: rep.PersonaFeedback,
		},
		ReportPaths: rep.ReportPaths,
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
