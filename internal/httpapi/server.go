package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/greenroomhq/greenroom/internal/config"
	"github.com/greenroomhq/greenroom/internal/evaluate"
	"github.com/greenroomhq/greenroom/internal/observability"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/report"
	"github.com/greenroomhq/greenroom/internal/store"
)

// Server exposes the interview service over HTTP.
type Server struct {
	cfg      config.Config
	sessions store.Store
	reports  *report.Builder
	metrics  *observability.Metrics

	// engines holds per-session engines so a session keeps using the key it
	// was started with. Entries are dropped when the session ends; a cache
	// miss falls back to an engine built from server configuration.
	engineMu sync.Mutex
	engines  map[string]evaluate.Engine

	// locks serializes read-modify-write cycles per session.
	locks sync.Map
}

func New(cfg config.Config, sessions store.Store, reports *report.Builder, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		reports:  reports,
		metrics:  metrics,
		engines:  make(map[string]evaluate.Engine),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/sessions/start", s.handleStart)
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Post("/sessions/{id}/next_question", s.handleNextQuestion)
	r.Post("/sessions/{id}/answer", s.handleAnswer)
	r.Post("/sessions/{id}/end", s.handleEnd)
	r.Get("/sessions/{id}/report", s.handleReport)
	r.Post("/upload", s.handleUpload)
	r.Get("/reports/{id}/{asset}", s.handleReportAsset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) storeMode() string {
	if s.cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "in-memory"
}

// lockSession serializes access to one session. The returned func releases
// the lock.
func (s *Server) lockSession(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// engineFor returns the engine a session was started with, rebuilding one
// from server configuration after a restart or idle eviction. A session
// started with a client-supplied key on a keyless server falls back to the
// mock engine rather than failing mid-interview.
func (s *Server) engineFor(sess store.Session) evaluate.Engine {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	if eng, ok := s.engines[sess.ID]; ok {
		return eng
	}
	eng, err := evaluate.ForProvider(sess.Provider, "", s.cfg)
	if err != nil {
		eng = evaluate.NewMockEngine()
	}
	s.engines[sess.ID] = eng
	return eng
}

func (s *Server) rememberEngine(sessionID string, eng evaluate.Engine) {
	s.engineMu.Lock()
	s.engines[sessionID] = eng
	s.engineMu.Unlock()
}

func (s *Server) forgetEngine(sessionID string) {
	s.engineMu.Lock()
	delete(s.engines, sessionID)
	s.engineMu.Unlock()
}

// ReleaseSession drops the per-session engine and lock for a session that
// went idle. Wired to the store cache's eviction hook so abandoned sessions
// do not accumulate state; an evicted session rebuilds both on next access.
func (s *Server) ReleaseSession(sessionID string) {
	s.forgetEngine(sessionID)
	if v, ok := s.locks.Load(sessionID); ok {
		// Idle past the cache timeout means no request holds this lock.
		if mu := v.(*sync.Mutex); mu.TryLock() {
			s.locks.Delete(sessionID)
			mu.Unlock()
		}
	}
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondDetail writes the {"detail": ...} error envelope every non-2xx
// response uses, and counts it against the matched route.
func (s *Server) respondDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	if s.metrics != nil && status >= 400 {
		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.HTTPErrors.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	respondJSON(w, status, protocol.ErrorDetail{Detail: detail})
}
