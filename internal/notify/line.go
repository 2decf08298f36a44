package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const lineAPIURL = "https://api.line.me/v2/bot/message/push"

// lineSink pushes messages through the LINE Messaging API to one user or
// group.
type lineSink struct {
	endpoint string
	token    string
	to       string
	client   *http.Client
}

func (s *lineSink) name() string { return "line" }

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

func (s *lineSink) send(ctx context.Context, message string) error {
	body, err := json.Marshal(linePush{
		To:       s.to,
		Messages: []lineMessage{{Type: "text", Text: message}},
	})
	if err != nil {
		return fmt.Errorf("encode line push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build line request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send line notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("line returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
