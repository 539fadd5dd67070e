package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/greenroomhq/greenroom/internal/client"
	"github.com/greenroomhq/greenroom/internal/config"
	"github.com/greenroomhq/greenroom/internal/interview"
	"github.com/greenroomhq/greenroom/internal/progress"
	"github.com/greenroomhq/greenroom/internal/protocol"
	"github.com/greenroomhq/greenroom/internal/voice"
)

func main() {
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		switch os.Args[1] {
		case "sessions":
			runSessions(cfg, os.Args[2:])
		case "report":
			runReport(cfg, os.Args[2:])
		case "upload":
			runUpload(cfg, os.Args[2:])
		case "help":
			usage()
		default:
			log.Fatalf("unknown command %q (try: greenroom help)", os.Args[1])
		}
		return
	}

	runInterview(cfg, os.Args[1:])
}

func usage() {
	fmt.Println(`greenroom - practice interview client

Usage:
  greenroom [flags]            run a practice interview
  greenroom sessions           list past sessions
  greenroom report <id>        show the report for a session
  greenroom upload <file>      upload a plain-text document for a preview

Interview flags:
  -job / -job-file       job spec text or file (required)
  -cv / -cv-file         CV text or file (required)
  -provider              mock | openai | gemini (default from ENGINE_PROVIDER)
  -api-key               provider API key for this session
  -start-round           1..3 (default 1)
  -server                service base URL (default from GREENROOM_SERVER_URL)
  -voice                 auto | stream | mock | off (default auto)

During the interview:
  type a line            set your answer draft
  :submit (or :s)        submit the draft
  :voice  (or :v)        toggle microphone capture
  :show                  re-print the current question and draft
  :quit   (or :q)        end the session early`)
}

func runInterview(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("greenroom", flag.ExitOnError)
	jobText := fs.String("job", "", "job spec text")
	jobFile := fs.String("job-file", "", "path to a job spec file")
	cvText := fs.String("cv", "", "CV text")
	cvFile := fs.String("cv-file", "", "path to a CV file")
	provider := fs.String("provider", cfg.EngineProvider, "engine provider (auto|mock|openai|gemini)")
	apiKey := fs.String("api-key", "", "provider API key for this session")
	startRound := fs.Int("start-round", 1, "round to start from (1..3)")
	server := fs.String("server", cfg.ServerBaseURL, "interview service base URL")
	voiceMode := fs.String("voice", "auto", "voice capture mode (auto|stream|mock|off)")
	_ = fs.Parse(args)

	job, err := textOrFile(*jobText, *jobFile)
	if err != nil {
		log.Fatalf("job spec: %v", err)
	}
	cv, err := textOrFile(*cvText, *cvFile)
	if err != nil {
		log.Fatalf("cv: %v", err)
	}

	capability, err := buildCapability(*voiceMode, cfg)
	if err != nil {
		log.Fatalf("voice: %v", err)
	}

	api := client.New(*server)
	sink := &consoleSink{out: os.Stdout}
	ctrl := interview.NewController(api, capability, cfg.SpeechLocale, sink)

	ctx := context.Background()
	prov := *provider
	if prov == "" {
		prov = "auto"
	}
	if err := ctrl.Start(ctx, interview.StartParams{
		JobSpec:    job,
		CVText:     cv,
		Provider:   prov,
		APIKey:     *apiKey,
		StartRound: *startRound,
	}); err != nil {
		log.Fatalf("start failed: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for ctrl.State() != interview.StateCompleted && ctrl.State() != interview.StateErrored {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case ":submit", ":s":
			if err := ctrl.SubmitAnswer(ctx); err != nil {
				fmt.Printf("  %v\n", err)
			}
		case ":voice", ":v":
			if err := ctrl.ToggleVoice(ctx); err != nil {
				fmt.Printf("  %v\n", err)
			}
		case ":show":
			if q, ok := ctrl.CurrentQuestion(); ok {
				sink.QuestionShown(q)
			}
			fmt.Printf("  draft: %s\n", ctrl.Draft())
		case ":quit", ":q":
			if err := ctrl.End(ctx); err != nil {
				fmt.Printf("  %v\n", err)
			}
		case ":help":
			usage()
		default:
			if strings.HasPrefix(line, ":") {
				fmt.Printf("  unknown command %s (try :help)\n", line)
				continue
			}
			ctrl.SetDraft(line)
		}
	}

	if ctrl.State() == interview.StateCompleted {
		if rep, err := ctrl.FetchReport(ctx, ctrl.SessionID()); err == nil {
			printReport(rep, *server)
		}
	}
}

func buildCapability(mode string, cfg config.Config) (voice.Capability, error) {
	switch mode {
	case "stream":
		if strings.TrimSpace(cfg.SpeechWSURL) == "" {
			return nil, fmt.Errorf("-voice=stream requires SPEECH_WS_URL")
		}
		return voice.NewStreamCapability(voice.StreamConfig{
			WSURL:  cfg.SpeechWSURL,
			APIKey: cfg.SpeechAPIKey,
		}), nil
	case "mock":
		return voice.NewMockCapability(), nil
	case "off":
		return voice.NewNopCapability(), nil
	case "", "auto":
		if strings.TrimSpace(cfg.SpeechWSURL) != "" {
			return voice.NewStreamCapability(voice.StreamConfig{
				WSURL:  cfg.SpeechWSURL,
				APIKey: cfg.SpeechAPIKey,
			}), nil
		}
		return voice.NewNopCapability(), nil
	default:
		return nil, fmt.Errorf("invalid -voice mode %q (expected auto|stream|mock|off)", mode)
	}
}

func runSessions(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	server := fs.String("server", cfg.ServerBaseURL, "interview service base URL")
	_ = fs.Parse(args)

	api := client.New(*server)
	list, err := api.ListSessions(context.Background())
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("no sessions yet")
		return
	}
	for _, s := range list {
		score := "-"
		if s.OverallScore != nil {
			score = fmt.Sprintf("%.1f", *s.OverallScore)
		}
		fmt.Printf("%s  %s  %-9s  %5s  %s\n",
			s.SessionID, s.CreatedAt.Format("2006-01-02 15:04"), s.Status, score, s.JobSpec)
	}
}

func runReport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	server := fs.String("server", cfg.ServerBaseURL, "interview service base URL")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("usage: greenroom report <session id>")
	}

	api := client.New(*server)
	rep, err := api.Report(context.Background(), fs.Arg(0))
	if err != nil {
		log.Fatalf("fetch report: %v", err)
	}
	printReport(rep, *server)
}

func runUpload(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	server := fs.String("server", cfg.ServerBaseURL, "interview service base URL")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("usage: greenroom upload <file>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	api := client.New(*server)
	res, err := api.Upload(context.Background(), fs.Arg(0), f)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	fmt.Println(res.TextPreview)
}

func printReport(rep protocol.Report, server string) {
	fmt.Printf("\n=== Interview report %s ===\n", rep.SessionID)
	fmt.Printf("Overall score: %.1f / 100\n", rep.OverallScore)
	if len(rep.Strengths) > 0 {
		fmt.Printf("Strengths:  %s\n", strings.Join(rep.Strengths, ", "))
	}
	if len(rep.Weaknesses) > 0 {
		fmt.Printf("Weaknesses: %s\n", strings.Join(rep.Weaknesses, ", "))
	}
	if len(rep.CompetencyAvgs) > 0 {
		fmt.Println("Competency averages:")
		for name, avg := range rep.CompetencyAvgs {
			fmt.Printf("  %-18s %.1f\n", name, avg)
		}
	}
	for _, fb := range rep.PersonaFeedback {
		fmt.Printf("[%s]\n", fb.Persona)
		for _, p := range fb.Positives {
			fmt.Printf("  + %s\n", p)
		}
		for _, c := range fb.Concerns {
			fmt.Printf("  - %s\n", c)
		}
		if fb.NextStep != "" {
			fmt.Printf("  next: %s\n", fb.NextStep)
		}
	}
	if rep.ReportPaths.CompetencyRadar != "" {
		fmt.Println("Charts:")
		for _, p := range []string{
			rep.ReportPaths.CompetencyRadar,
			rep.ReportPaths.ScoreOverTime,
			rep.ReportPaths.PersonaComparison,
		} {
			fmt.Printf("  %s/%s\n", strings.TrimRight(server, "/"), p)
		}
	}
}

func textOrFile(text, file string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if file == "" {
		return "", fmt.Errorf("provide inline text or a file path")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// consoleSink renders controller events to the terminal.
type consoleSink struct {
	out *os.File
}

func (s *consoleSink) StateChanged(state interview.State) {
	if state == interview.StateCompleted {
		fmt.Fprintln(s.out, "\ninterview complete")
	}
}

func (s *consoleSink) StatusText(text string) {
	fmt.Fprintf(s.out, "  %s\n", text)
}

func (s *consoleSink) QuestionShown(q protocol.Question) {
	fmt.Fprintf(s.out, "\n[%s] %s\n", q.Round, q.Text)
}

func (s *consoleSink) DraftChanged(draft string) {
	if draft != "" {
		fmt.Fprintf(s.out, "  draft: %s\n", draft)
	}
}

func (s *consoleSink) ProgressChanged(snap progress.Snapshot) {
	var bar strings.Builder
	for _, step := range snap.Steps {
		switch step {
		case progress.StepComplete:
			bar.WriteString("#")
		case progress.StepActive:
			bar.WriteString(">")
		default:
			bar.WriteString(".")
		}
	}
	fmt.Fprintf(s.out, "  [%s] %s (%.0f%%)\n", bar.String(), snap.Label(), snap.Percent)
}

func (s *consoleSink) ListeningChanged(listening bool) {
	if listening {
		fmt.Fprintln(s.out, "  [mic on]")
	} else {
		fmt.Fprintln(s.out, "  [mic off]")
	}
}

func (s *consoleSink) SummaryReady(summary protocol.Summary) {
	fmt.Fprintf(s.out, "\nOverall score: %.1f / 100\n", summary.OverallScore)
}
