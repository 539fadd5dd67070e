package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/config"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/reliability"
)

const (
	chatAttempts    = 3
	chatBackoffBase = 500 * time.Millisecond
	chatBackoffCap  = 4 * time.Second
)

// dialect abstracts the request/response shape of a chat provider so the
// engine logic stays provider-neutral.
type dialect struct {
	name    string
	url     string
	headers map[string]string
	// encode wraps a prompt into the provider's request body.
	encode func(prompt string) any
	// decode extracts the model text from a raw response body.
	decode func(body []byte) (string, error)
}

func openAIDialect(cfg config.Config, key string) dialect {
	return dialect{
		name: "openai",
		url:  strings.TrimRight(cfg.OpenAIBaseURL, "/") + "/v1/chat/completions",
		headers: map[string]string{
			"Authorization": "Bearer " + key,
		},
		encode: func(prompt string) any {
			return map[string]any{
				"model": cfg.OpenAIModel,
				"messages": []map[string]string{
					{"role": "user", "content": prompt},
				},
				"temperature": 0.4,
			}
		},
		decode: func(body []byte) (string, error) {
			var res struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			if err := json.Unmarshal(body, &res); err != nil {
				return "", fmt.Errorf("decode openai response: %w", err)
			}
			if len(res.Choices) == 0 {
				return "", fmt.Errorf("openai response has no choices")
			}
			return res.Choices[0].Message.Content, nil
		},
	}
}

func geminiDialect(cfg config.Config, key string) dialect {
	return dialect{
		name: "gemini",
		url: fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
			strings.TrimRight(cfg.GeminiBaseURL, "/"), cfg.GeminiModel, key),
		encode: func(prompt string) any {
			return map[string]any{
				"contents": []map[string]any{
					{"parts": []map[string]string{{"text": prompt}}},
				},
			}
		},
		decode: func(body []byte) (string, error) {
			var res struct {
				Candidates []struct {
					Content struct {
						Parts []struct {
							Text string `json:"text"`
						} `json:"parts"`
					} `json:"content"`
				} `json:"candidates"`
			}
			if err := json.Unmarshal(body, &res); err != nil {
				return "", fmt.Errorf("decode gemini response: %w", err)
			}
			if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
				return "", fmt.Errorf("gemini response has no candidates")
			}
			return res.Candidates[0].Content.Parts[0].Text, nil
		},
	}
}

// chatEngine runs the interview against a remote chat-completion API.
type chatEngine struct {
	dialect dialect
	client  *http.Client
}

func newChatEngine(d dialect) *chatEngine {
	return &chatEngine{
		dialect: d,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (e *chatEngine) Verify(ctx context.Context) error {
	_, err := e.complete(ctx, "Reply with the single word: ok")
	if err != nil {
		return fmt.Errorf("verify %s engine: %w", e.dialect.name, err)
	}
	return nil
}

func (e *chatEngine) GenerateRubric(ctx context.Context, jobSpec, cvText string) (Rubric, error) {
	var rubric Rubric
	if err := e.completeJSON(ctx, rubricPrompt(jobSpec, cvText), &rubric); err != nil {
		return Rubric{}, err
	}
	if len(rubric.Competencies) == 0 {
		return Rubric{}, fmt.Errorf("rubric has no competencies")
	}
	normalizeWeights(&rubric)
	return rubric, nil
}

func (e *chatEngine) GenerateQuestion(ctx context.Context, req QuestionRequest) (protocol.Question, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := e.completeJSON(ctx, questionPrompt(req), &out); err != nil {
		return protocol.Question{}, err
	}
	if strings.TrimSpace(out.Text) == "" {
		return protocol.Question{}, fmt.Errorf("generated question is empty")
	}
	return protocol.Question{
		QuestionID: req.QuestionID,
		Text:       strings.TrimSpace(out.Text),
		Round:      req.Round.Label,
		Persona:    req.Persona,
	}, nil
}

func (e *chatEngine) ScoreAnswer(ctx context.Context, req ScoreRequest) (AnswerEvaluation, error) {
	eval := AnswerEvaluation{
		QuestionID:     req.QuestionID,
		PersonaResults: map[string]PersonaResult{},
	}
	for _, persona := range Personas() {
		var out struct {
			CompetencyScores map[string]int `json:"competency_scores"`
			Positives        []string       `json:"positives"`
			Concerns         []string       `json:"concerns"`
			NextStep         string         `json:"next_step"`
		}
		if err := e.completeJSON(ctx, scorePrompt(req, persona), &out); err != nil {
			return AnswerEvaluation{}, fmt.Errorf("score answer as %s: %w", persona.Name, err)
		}
		clampScores(out.CompetencyScores, req.Rubric)
		eval.PersonaResults[persona.Name] = PersonaResult{
			CompetencyScores: out.CompetencyScores,
			Positives:        out.Positives,
			Concerns:         out.Concerns,
			NextStep:         out.NextStep,
			Overall:          OverallScore(out.CompetencyScores, req.Rubric),
		}
	}
	return eval, nil
}

func (e *chatEngine) BuildSummary(ctx context.Context, jobSpec string, agg Aggregates) (protocol.Summary, error) {
	var out struct {
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	}
	if err := e.completeJSON(ctx, summaryPrompt(jobSpec, agg), &out); err != nil {
		return protocol.Summary{}, err
	}
	if len(out.Strengths) == 0 && len(out.Weaknesses) == 0 {
		return protocol.Summary{}, fmt.Errorf("summary has no content")
	}
	return protocol.Summary{
		OverallScore:    agg.OverallScore,
		Strengths:       out.Strengths,
		Weaknesses:      out.Weaknesses,
		PersonaFeedback: agg.PersonaFeedback,
	}, nil
}

// completeJSON calls the model and unmarshals its reply. A malformed reply is
// retried with a fix-up prompt that quotes the parse error.
func (e *chatEngine) completeJSON(ctx context.Context, prompt string, out any) error {
	current := prompt
	var lastErr error
	for attempt := 0; attempt < chatAttempts; attempt++ {
		text, err := e.complete(ctx, current)
		if err != nil {
			return err
		}
		err = json.Unmarshal([]byte(stripFences(text)), out)
		if err == nil {
			return nil
		}
		lastErr = err
		current = fixJSONPrompt(prompt, text, err)
	}
	return fmt.Errorf("model returned invalid JSON after %d attempts: %w", chatAttempts, lastErr)
}

// complete sends one prompt and returns the model text, retrying transient
// HTTP failures with backoff.
func (e *chatEngine) complete(ctx context.Context, prompt string) (string, error) {
	var text string
	err := reliability.Retry(ctx, chatAttempts, chatBackoffBase, chatBackoffCap, func() error {
		payload, err := json.Marshal(e.dialect.encode(prompt))
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.dialect.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range e.dialect.headers {
			req.Header.Set(k, v)
		}

		res, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			err := fmt.Errorf("%s http status %d: %s", e.dialect.name, res.StatusCode, string(body))
			if reliability.IsRetryableHTTPStatus(res.StatusCode) {
				return err
			}
			return reliability.Permanent(err)
		}

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		text, err = e.dialect.decode(body)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// stripFences removes markdown code fences models often wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// clampScores bounds model scores to the 1..4 scale and drops competencies
// the rubric does not define.
func clampScores(scores map[string]int, rubric Rubric) {
	for name, score := range scores {
		if !rubricHas(rubric, name) {
			delete(scores, name)
			continue
		}
		if score < 1 {
			scores[name] = 1
		} else if score > 4 {
			scores[name] = 4
		}
	}
}

func rubricHas(rubric Rubric, name string) bool {
	for _, c := range rubric.Competencies {
		if c.Name == name {
			return true
		}
	}
	return false
}

// normalizeWeights rescales rubric weights to sum to 1, defaulting to equal
// weights when the model omits them.
func normalizeWeights(r *Rubric) {
	var sum float64
	for _, c := range r.Competencies {
		if c.Weight > 0 {
			sum += c.Weight
		}
	}
	n := len(r.Competencies)
	for i := range r.Competencies {
		if sum > 0 && r.Competencies[i].Weight > 0 {
			r.Competencies[i].Weight /= sum
		} else {
			r.Competencies[i].Weight = 1 / float64(n)
		}
	}
}
