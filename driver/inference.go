package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"news-enricher/config"
)

// Message is one chat turn sent to the inference runtime.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type inferenceRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type inferenceResponse struct {
	Response string `json:"response"`
}

// InferenceHTTPClient allows injecting a fake transport in tests.
type InferenceHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// InferenceClient talks to the LLM inference runtime over its JSON API.
type InferenceClient struct {
	endpoint string
	model    string
	client   InferenceHTTPClient
	logger   *slog.Logger
}

func NewInferenceClient(cfg *config.Config, logger *slog.Logger) *InferenceClient {
	return &InferenceClient{
		endpoint: strings.TrimSuffix(cfg.Inference.Host, "/") + cfg.Inference.APIPath,
		model:    cfg.Inference.Model,
		client:   &http.Client{Timeout: cfg.Inference.Timeout},
		logger:   logger,
	}
}

// NewInferenceClientWithClient injects a custom HTTP client for tests.
func NewInferenceClientWithClient(cfg *config.Config, client InferenceHTTPClient, logger *slog.Logger) *InferenceClient {
	c := NewInferenceClient(cfg, logger)
	c.client = client

	return c
}

// Run sends the messages to the model and returns the raw completion text.
func (c *InferenceClient) Run(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	payload, err := json.Marshal(inferenceRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close inference response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference runtime returned status %d: %s",
			resp.StatusCode, truncateBody(body, 512))
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse inference response: %w", err)
	}

	return parsed.Response, nil
}

// CheckHealth verifies the runtime answers a trivial prompt. Used at startup
// before the processor job is scheduled.
func (c *InferenceClient) CheckHealth(ctx context.Context) error {
	_, err := c.Run(ctx, []Message{
		{Role: "user", Content: "Reply with the single word: ok"},
	}, 5)
	if err != nil {
		return fmt.Errorf("inference runtime health check failed: %w", err)
	}

	return nil
}

func truncateBody(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}

	return string(body)
}
