package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

func TestRequestNextQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions/s-1/next_question" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(protocol.Question{
			QuestionID: "q-1",
			Text:       "Tell me about a system you scaled.",
			Round:      "Round 1",
			Persona:    "neutral",
		})
	}))
	defer srv.Close()

	result, err := New(srv.URL).RequestNext(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("RequestNext error = %v", err)
	}
	if result.Kind != NextQuestion {
		t.Fatalf("Kind = %q, want question", result.Kind)
	}
	if result.Question.QuestionID != "q-1" {
		t.Fatalf("QuestionID = %q, want q-1", result.Question.QuestionID)
	}
}

func TestRequestNextCompletionSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(protocol.ErrorDetail{Detail: protocol.DetailInterviewComplete})
	}))
	defer srv.Close()

	result, err := New(srv.URL).RequestNext(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("RequestNext error = %v, completion must not be a failure", err)
	}
	if result.Kind != InterviewComplete {
		t.Fatalf("Kind = %q, want complete", result.Kind)
	}
}

func TestRequestNextOtherErrorSurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(protocol.ErrorDetail{Detail: "Session is not active"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).RequestNext(context.Background(), "s-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Detail != "Session is not active" {
		t.Fatalf("Detail = %q, want server message verbatim", apiErr.Detail)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
}

func TestUnparseableErrorBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Start(context.Background(), protocol.StartRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Detail != "Request failed" {
		t.Fatalf("Detail = %q, want generic fallback", apiErr.Detail)
	}
}

func TestStartRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode start request: %v", err)
		}
		if req.Provider != "mock" || req.StartRound != 2 {
			t.Fatalf("unexpected start request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(protocol.StartResponse{SessionID: "s-9", TotalQuestions: 5})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Start(context.Background(), protocol.StartRequest{
		JobSpec:    "Backend Engineer",
		CVText:     "10 yrs Go",
		Provider:   "mock",
		StartRound: 2,
	})
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if res.SessionID != "s-9" || res.TotalQuestions != 5 {
		t.Fatalf("Start response = %+v", res)
	}
}

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "cv.txt" {
			t.Fatalf("filename = %q, want cv.txt", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(protocol.UploadResponse{TextPreview: "10 yrs Go"})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Upload(context.Background(), "cv.txt", strings.NewReader("10 yrs Go"))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if res.TextPreview != "10 yrs Go" {
		t.Fatalf("TextPreview = %q", res.TextPreview)
	}
}
