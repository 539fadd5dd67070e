package evaluate

import (
	"fmt"
	"strings"
)

func rubricPrompt(jobSpec, cvText string) string {
	var b strings.Builder
	b.WriteString("You are designing an interview rubric.\n")
	b.WriteString("Given the job spec and candidate CV below, produce 5 to 7 competencies to score the candidate against.\n")
	b.WriteString("Weights must be between 0 and 1 and sum to 1.\n\n")
	b.WriteString("Job spec:\n" + truncate(jobSpec, 4000) + "\n\n")
	b.WriteString("Candidate CV:\n" + truncate(cvText, 4000) + "\n\n")
	b.WriteString(`Respond with JSON only, no prose, in this shape:
{"competencies": [{"name": "...", "weight": 0.2, "signals": "what a strong answer shows"}]}`)
	return b.String()
}

func questionPrompt(req QuestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an interviewer running %s (%s). Goal: %s\n", req.Round.Label, req.Round.Name, req.Round.Goal)
	fmt.Fprintf(&b, "Interviewer persona: %s\n\n", req.Persona)
	b.WriteString("Job spec:\n" + truncate(req.JobSpec, 3000) + "\n\n")
	b.WriteString("Candidate CV:\n" + truncate(req.CVText, 3000) + "\n\n")
	if len(req.Previous) > 0 {
		b.WriteString("Questions already asked:\n")
		for _, q := range req.Previous {
			b.WriteString("- " + q.Text + "\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Ask question %d of the interview. Do not repeat earlier questions.\n", req.Index+1)
	b.WriteString(`Respond with JSON only: {"text": "the question"}`)
	return b.String()
}

func scorePrompt(req ScoreRequest, persona Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an interviewer with this persona: %s\n%s\n\n", persona.Name, persona.Style)
	b.WriteString("Score the candidate's answer against each competency on a 1-4 scale ")
	b.WriteString("(1 = poor, 4 = excellent).\n\nCompetencies:\n")
	for _, c := range req.Rubric.Competencies {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Signals)
	}
	b.WriteString("\nQuestion:\n" + req.Question + "\n\n")
	b.WriteString("Answer:\n" + truncate(req.Answer, 4000) + "\n\n")
	b.WriteString(`Respond with JSON only:
{"competency_scores": {"<competency name>": 3}, "positives": ["..."], "concerns": ["..."], "next_step": "one concrete practice suggestion"}`)
	return b.String()
}

func summaryPrompt(jobSpec string, agg Aggregates) string {
	var b strings.Builder
	b.WriteString("Summarize an interview performance for the candidate.\n\n")
	b.WriteString("Job spec:\n" + truncate(jobSpec, 2000) + "\n\n")
	b.WriteString("Competency averages (0-100):\n")
	for name, avg := range agg.CompetencyAvgs {
		fmt.Fprintf(&b, "- %s: %.1f\n", name, avg)
	}
	fmt.Fprintf(&b, "\nOverall score: %.1f\n\n", agg.OverallScore)
	b.WriteString(`Respond with JSON only:
{"strengths": ["up to 3 items"], "weaknesses": ["up to 3 items"]}`)
	return b.String()
}

func fixJSONPrompt(original, reply string, parseErr error) string {
	var b strings.Builder
	b.WriteString("Your previous reply was not valid JSON.\n")
	fmt.Fprintf(&b, "Parse error: %v\n\n", parseErr)
	b.WriteString("Previous reply:\n" + truncate(reply, 2000) + "\n\n")
	b.WriteString("Original request:\n" + original + "\n\n")
	b.WriteString("Respond again with valid JSON only.")
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
