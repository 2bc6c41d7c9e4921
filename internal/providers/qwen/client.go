// Package qwen adapts the DashScope asynchronous image-editing API. Tasks
// are submitted with the async header set; DashScope reports the outcome to
// our callback endpoint once the task leaves the queue.
package qwen

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
var ErrMissingAPIKey = errors.New("qwen: api key is required")

const providerName = "qwen"

// Options configures the DashScope image-edit client.
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

// Client performs HTTP calls to the DashScope image-edit API and normalizes
// its callbacks.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	webhookSecret string
	callbackURL   string
	httpClient    *http.Client
	logger        *infra.Logger
}

type submitPayload struct {
	Model      string       `json:"model"`
	Input      submitInput  `json:"input"`
	Parameters submitParams `json:"parameters"`
}

type submitInput struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
}

type submitParams struct {
	CallbackURL string `json:"callback_url,omitempty"`
	ClientRef   string `json:"client_ref,omitempty"`
}

type submitResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type callbackPayload struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	Results    []struct {
		URL string `json:"url"`
	} `json:"results"`
	Code    string `json:"code"`
	Message string `json:"message"`
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
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-edit"
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

// Submit enqueues one image-edit task and returns the DashScope task id.
func (c *Client) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrProviderRejected)
	}
	payload := submitPayload{
		Model: c.model,
		Input: submitInput{
			Prompt:   prompt,
			ImageURL: req.Options.SourceImageURL,
		},
		Parameters: submitParams{
			CallbackURL: c.callbackURL,
			ClientRef:   req.JobID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qwen: encode request: %w", err)
	}

	url := c.baseURL + "/services/aigc/image2image/image-synthesis"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

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

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || parsed.Code != "" {
		c.logger.Warn().
			Str("provider", providerName).
			Str("code", parsed.Code).
			Str("request_id", parsed.RequestID).
			Msg("submission rejected")
		return "", fmt.Errorf("%w: %s %s", domain.ErrProviderRejected, parsed.Code, parsed.Message)
	}
	if parsed.Output.TaskID == "" {
		return "", fmt.Errorf("%w: response missing task_id", domain.ErrProviderRejected)
	}

	c.logger.Debug().
		Str("provider", providerName).
		Str("task_id", parsed.Output.TaskID).
		Str("job_id", req.JobID).
		Msg("task submitted")
	return parsed.Output.TaskID, nil
}

// ParseCallback authenticates and normalizes one DashScope callback body.
func (c *Client) ParseCallback(body []byte, signature string) (domain.CallbackEvent, error) {
	if !providers.VerifySignature(c.webhookSecret, body, signature) {
		return domain.CallbackEvent{}, domain.ErrInvalidSignature
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.CallbackEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if payload.TaskID == "" {
		return domain.CallbackEvent{}, fmt.Errorf("%w: missing task_id", domain.ErrMalformedPayload)
	}

	event := domain.CallbackEvent{
		Provider:      providerName,
		ProviderJobID: payload.TaskID,
		PayloadDigest: providers.PayloadDigest(body),
	}
	switch payload.TaskStatus {
	case "RUNNING":
		event.Outcome = domain.CallbackOutcomeProcessing
	case "SUCCEEDED":
		event.Outcome = domain.CallbackOutcomeSucceeded
		if len(payload.Results) == 0 || payload.Results[0].URL == "" {
			return domain.CallbackEvent{}, fmt.Errorf("%w: succeeded without result url", domain.ErrMalformedPayload)
		}
		event.ResultRef = payload.Results[0].URL
	case "FAILED":
		event.Outcome = domain.CallbackOutcomeFailed
		event.FailureReason = strings.TrimSpace(payload.Code + " " + payload.Message)
	default:
		return domain.CallbackEvent{}, fmt.Errorf("%w: unknown task_status %q", domain.ErrMalformedPayload, payload.TaskStatus)
	}
	return event, nil
}

var _ providers.Adapter = (*Client)(nil)
