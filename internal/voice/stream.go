package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig points the recognizer at a realtime transcription websocket
// endpoint (Deepgram-style: JSON messages carrying interim and final
// transcripts for the host microphone stream).
type StreamConfig struct {
	WSURL  string
	APIKey string
}

// StreamCapability dials a realtime STT websocket per capture session.
type StreamCapability struct {
	cfg StreamConfig
}

func NewStreamCapability(cfg StreamConfig) *StreamCapability {
	return &StreamCapability{cfg: cfg}
}

func (c *StreamCapability) Supported() bool {
	return strings.TrimSpace(c.cfg.WSURL) != ""
}

func (c *StreamCapability) Start(ctx context.Context, engineCfg EngineConfig) (Engine, error) {
	u, err := url.Parse(strings.TrimSpace(c.cfg.WSURL))
	if err != nil {
		return nil, fmt.Errorf("parse stt url: %w", err)
	}
	q := u.Query()
	q.Set("language", engineCfg.Locale)
	q.Set("interim_results", boolParam(engineCfg.InterimResults))
	q.Set("continuous", boolParam(engineCfg.Continuous))
	u.RawQuery = q.Encode()

	headers := http.Header{}
	if c.cfg.APIKey != "" {
		headers.Set("Authorization", "Token "+c.cfg.APIKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial stt websocket: %w", err)
	}

	e := &streamEngine{conn: conn, events: make(chan Event, 256)}
	go e.readLoop()
	return e, nil
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

type streamEngine struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	events    chan Event
}

type streamMessage struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
	IsFinal     bool   `json:"is_final"`
	Error       string `json:"error"`
}

func (e *streamEngine) Events() <-chan Event { return e.events }

func (e *streamEngine) Stop() error {
	var retErr error
	e.closeOnce.Do(func() {
		retErr = e.conn.Close()
	})
	return retErr
}

func (e *streamEngine) readLoop() {
	defer func() {
		_ = e.Stop()
		close(e.events)
	}()

	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		now := time.Now().UnixMilli()
		switch msg.MessageType {
		case "transcript":
			if msg.IsFinal {
				e.events <- Event{Type: EventFinal, Text: msg.Text, Timestamp: now}
			} else {
				e.events <- Event{Type: EventPartial, Text: msg.Text, Timestamp: now}
			}
		case "session_started", "":
			// control events; nothing to surface
		default:
			e.events <- Event{Type: EventError, Code: msg.MessageType, Detail: msg.Error, Timestamp: now}
		}
	}
}
