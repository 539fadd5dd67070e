package evaluate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greenroomhq/greenroom/internal/config"
)

func openAIReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
}

func testOpenAIEngine(url string) *chatEngine {
	cfg := config.Config{OpenAIBaseURL: url, OpenAIModel: "test-model"}
	return newChatEngine(openAIDialect(cfg, "sk-test"))
}

func TestChatGenerateQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		openAIReply(t, w, `{"text": "Tell me about your last project."}`)
	}))
	defer srv.Close()

	eng := testOpenAIEngine(srv.URL)
	q, err := eng.GenerateQuestion(context.Background(), QuestionRequest{
		QuestionID: "q1",
		Round:      RoundForIndex(0, 1),
		Persona:    DefaultPersona,
	})
	if err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}
	if q.QuestionID != "q1" || q.Text != "Tell me about your last project." {
		t.Fatalf("question = %+v", q)
	}
	if q.Round != "Round 1" || q.Persona != "neutral" {
		t.Fatalf("round/persona = %q/%q", q.Round, q.Persona)
	}
}

func TestChatRepromptsOnInvalidJSON(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			openAIReply(t, w, "Sure! Here is the question you asked for.")
			return
		}
		openAIReply(t, w, "```json\n{\"text\": \"What trade-offs did you weigh?\"}\n```")
	}))
	defer srv.Close()

	eng := testOpenAIEngine(srv.URL)
	q, err := eng.GenerateQuestion(context.Background(), QuestionRequest{
		QuestionID: "q2",
		Round:      RoundForIndex(4, 1),
		Persona:    DefaultPersona,
	})
	if err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if q.Text != "What trade-offs did you weigh?" {
		t.Fatalf("text = %q", q.Text)
	}
}

func TestChatRetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		openAIReply(t, w, "ok")
	}))
	defer srv.Close()

	eng := testOpenAIEngine(srv.URL)
	if err := eng.Verify(context.Background()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestChatDoesNotRetryAuthFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": "invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	eng := testOpenAIEngine(srv.URL)
	if err := eng.Verify(context.Background()); err == nil {
		t.Fatal("Verify succeeded against 401")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestGeminiDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-test" {
			t.Errorf("key param = %q", r.URL.Query().Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{{"text": `{"text": "Why this company?"}`}},
				}},
			},
		})
	}))
	defer srv.Close()

	cfg := config.Config{GeminiBaseURL: srv.URL, GeminiModel: "test-model"}
	eng := newChatEngine(geminiDialect(cfg, "g-test"))
	q, err := eng.GenerateQuestion(context.Background(), QuestionRequest{
		QuestionID: "q1",
		Round:      RoundForIndex(0, 1),
		Persona:    DefaultPersona,
	})
	if err != nil {
		t.Fatalf("GenerateQuestion: %v", err)
	}
	if q.Text != "Why this company?" {
		t.Fatalf("text = %q", q.Text)
	}
}
