// Package client is the typed wrapper over the evaluation service HTTP
// boundary. Calls are single-shot; retry policy, if any, belongs to the
// caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/protocol"
)

// genericFailure stands in when an error body is absent or unparseable.
const genericFailure = "Request failed"

// APIError carries the server-supplied detail for a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NextQuestionKind distinguishes the three next-question outcomes so the
// controller switches on a type instead of matching an error string.
type NextQuestionKind string

const (
	NextQuestion      NextQuestionKind = "question"
	InterviewComplete NextQuestionKind = "complete"
)

type NextQuestionResult struct {
	Kind     NextQuestionKind
	Question protocol.Question
}

func (c *Client) Start(ctx context.Context, req protocol.StartRequest) (protocol.StartResponse, error) {
	var out protocol.StartResponse
	if err := c.postJSON(ctx, "/sessions/start", req, &out); err != nil {
		return protocol.StartResponse{}, err
	}
	return out, nil
}

// RequestNext asks for the next question. The completion signal travels on
// the error channel at the wire level; it is folded into the result kind
// here so callers never see it as a failure.
func (c *Client) RequestNext(ctx context.Context, sessionID string) (NextQuestionResult, error) {
	var q protocol.Question
	err := c.postJSON(ctx, "/sessions/"+sessionID+"/next_question", nil, &q)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Detail == protocol.DetailInterviewComplete {
			return NextQuestionResult{Kind: InterviewComplete}, nil
		}
		return NextQuestionResult{}, err
	}
	return NextQuestionResult{Kind: NextQuestion, Question: q}, nil
}

func (c *Client) Answer(ctx context.Context, sessionID string, req protocol.AnswerRequest) error {
	var out protocol.AnswerResponse
	return c.postJSON(ctx, "/sessions/"+sessionID+"/answer", req, &out)
}

func (c *Client) End(ctx context.Context, sessionID string) (protocol.EndResponse, error) {
	var out protocol.EndResponse
	if err := c.postJSON(ctx, "/sessions/"+sessionID+"/end", nil, &out); err != nil {
		return protocol.EndResponse{}, err
	}
	return out, nil
}

// Report fetches the persisted report for a session id. It needs no live
// session state, so a fresh client can read reports for past sessions.
func (c *Client) Report(ctx context.Context, sessionID string) (protocol.Report, error) {
	var out protocol.Report
	if err := c.getJSON(ctx, "/sessions/"+sessionID+"/report", &out); err != nil {
		return protocol.Report{}, err
	}
	return out, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]protocol.SessionSummary, error) {
	var out []protocol.SessionSummary
	if err := c.getJSON(ctx, "/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (protocol.SessionSnapshot, error) {
	var out protocol.SessionSnapshot
	if err := c.getJSON(ctx, "/sessions/"+sessionID, &out); err != nil {
		return protocol.SessionSnapshot{}, err
	}
	return out, nil
}

// Upload sends a CV file for text extraction.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (protocol.UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return protocol.UploadResponse{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return protocol.UploadResponse{}, fmt.Errorf("copy upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return protocol.UploadResponse{}, fmt.Errorf("finish multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return protocol.UploadResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var out protocol.UploadResponse
	if err := c.do(httpReq, &out); err != nil {
		return protocol.UploadResponse{}, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Detail: extractDetail(res.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractDetail best-effort parses the error envelope.
func extractDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil {
		return genericFailure
	}
	var detail protocol.ErrorDetail
	if err := json.Unmarshal(raw, &detail); err != nil || strings.TrimSpace(detail.Detail) == "" {
		return genericFailure
	}
	return detail.Detail
}
