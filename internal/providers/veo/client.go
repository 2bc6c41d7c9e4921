// Package veo adapts the Veo text-to-video long-running operation API.
// Submission starts an operation; the provider reports terminal outcomes to
// our callback endpoint.
package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("veo: api key is required")

const providerName = "veo"

// Options configures the Veo client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	WebhookSecret  string
	CallbackURL    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client starts Veo video-generation operations and normalizes callbacks.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	webhookSecret string
	callbackURL   string
	httpClient    *http.Client
	logger        *infra.Logger
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParams     `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParams struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	CallbackURL     string `json:"callbackUrl,omitempty"`
	ClientRef       string `json:"clientRef,omitempty"`
}

type predictResponse struct {
	Name  string `json:"name"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type callbackPayload struct {
	Operation string `json:"operation"`
	State     string `json:"state"`
	Video     struct {
		URI string `json:"uri"`
	} `json:"video"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "veo-2.0-generate-001"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		model:         model,
		webhookSecret: opts.WebhookSecret,
		callbackURL:   strings.TrimSpace(opts.CallbackURL),
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// Name returns the provider identifier used in webhook routes.
func (c *Client) Name() string {
	return providerName
}

// Submit starts one text-to-video operation and returns the operation name.
func (c *Client) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrProviderRejected)
	}
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParams{
			AspectRatio:     req.Options.AspectRatio,
			DurationSeconds: req.Options.DurationSeconds,
			CallbackURL:     c.callbackURL,
			ClientRef:       req.JobID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("veo: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("veo: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || parsed.Error != nil {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		c.logger.Warn().Str("provider", providerName).Str("message", msg).Msg("submission rejected")
		return "", fmt.Errorf("%w: %s", domain.ErrProviderRejected, msg)
	}
	if parsed.Name == "" {
		return "", fmt.Errorf("%w: response missing operation name", domain.ErrProviderRejected)
	}

	c.logger.Debug().
		Str("provider", providerName).
		Str("operation", parsed.Name).
		Str("job_id", req.JobID).
		Msg("operation started")
	return parsed.Name, nil
}

// ParseCallback authenticates and normalizes one Veo callback body.
func (c *Client) ParseCallback(body []byte, signature string) (domain.CallbackEvent, error) {
	if !providers.VerifySignature(c.webhookSecret, body, signature) {
		return domain.CallbackEvent{}, domain.ErrInvalidSignature
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.CallbackEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if payload.Operation == "" {
		return domain.CallbackEvent{}, fmt.Errorf("%w: missing operation", domain.ErrMalformedPayload)
	}

	event := domain.CallbackEvent{
		Provider:      providerName,
		ProviderJobID: payload.Operation,
		PayloadDigest: providers.PayloadDigest(body),
	}
	switch payload.State {
	case "ACTIVE":
		event.Outcome = domain.CallbackOutcomeProcessing
	case "SUCCEEDED":
		if payload.Video.URI == "" {
			return domain.CallbackEvent{}, fmt.Errorf("%w: succeeded without video uri", domain.ErrMalformedPayload)
		}
		event.Outcome = domain.CallbackOutcomeSucceeded
		event.ResultRef = payload.Video.URI
	case "FAILED":
		event.Outcome = domain.CallbackOutcomeFailed
		event.FailureReason = payload.Error.Message
	default:
		return domain.CallbackEvent{}, fmt.Errorf("%w: unknown state %q", domain.ErrMalformedPayload, payload.State)
	}
	return event, nil
}

var _ providers.Adapter = (*Client)(nil)
