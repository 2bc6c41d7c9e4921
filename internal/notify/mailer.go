// Package notify is the outbound transactional-email collaborator. Job
// outcome mail is strictly best-effort; a failed send never affects job or
// ledger state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one transactional email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer drops every message; used when no mail endpoint is configured.
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, msg Message) error { return nil }

// HTTPMailer posts messages to an email-delivery API with bearer auth.
type HTTPMailer struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewHTTPMailer creates a mailer for the given delivery endpoint.
func NewHTTPMailer(endpoint, apiKey, from string, httpClient *http.Client) *HTTPMailer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPMailer{endpoint: endpoint, apiKey: apiKey, from: from, httpClient: httpClient}
}

// Send delivers one message and reports delivery failure as an error.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("notify: message has no recipients")
	}
	payload := struct {
		From string `json:"from"`
		Message
	}{From: m.from, Message: msg}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify: delivery endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Mailer = (*HTTPMailer)(nil)
