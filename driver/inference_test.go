package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"news-enricher/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInferenceHTTPClient struct {
	requests []*http.Request
	bodies   [][]byte
	do       func(req *http.Request) (*http.Response, error)
}

func (f *fakeInferenceHTTPClient) Do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)

	return f.do(req)
}

func inferenceTestConfig() *config.Config {
	return &config.Config{
		Inference: config.InferenceConfig{
			Host:    "http://inference.example/",
			APIPath: "/v1/run",
			Model:   "test-model",
			Timeout: time.Second,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInferenceRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should post the chat payload and return the response text", func(t *testing.T) {
		client := &fakeInferenceHTTPClient{do: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"response":"neutral"}`))),
			}, nil
		}}

		c := NewInferenceClientWithClient(inferenceTestConfig(), client, testLogger())

		response, err := c.Run(ctx, []Message{
			{Role: "system", Content: "classify"},
			{Role: "user", Content: "Bitcoin climbs"},
		}, 10)
		require.NoError(t, err)
		assert.Equal(t, "neutral", response)

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "http://inference.example/v1/run", req.URL.String())
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(client.bodies[0], &payload))
		assert.Equal(t, "test-model", payload["model"])
		assert.Equal(t, float64(10), payload["max_tokens"])
		assert.Len(t, payload["messages"], 2)
	})

	t.Run("should fail with the status and body on a non-200", func(t *testing.T) {
		client := &fakeInferenceHTTPClient{do: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(bytes.NewReader([]byte("model loading"))),
			}, nil
		}}

		c := NewInferenceClientWithClient(inferenceTestConfig(), client, testLogger())

		_, err := c.Run(ctx, []Message{{Role: "user", Content: "hi"}}, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "model loading")
	})

	t.Run("should fail on unparsable response body", func(t *testing.T) {
		client := &fakeInferenceHTTPClient{do: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader([]byte("not json"))),
			}, nil
		}}

		c := NewInferenceClientWithClient(inferenceTestConfig(), client, testLogger())

		_, err := c.Run(ctx, []Message{{Role: "user", Content: "hi"}}, 10)
		assert.Error(t, err)
	})
}

func TestCheckHealth(t *testing.T) {
	t.Run("should pass when the runtime answers", func(t *testing.T) {
		client := &fakeInferenceHTTPClient{do: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"response":"ok"}`))),
			}, nil
		}}

		c := NewInferenceClientWithClient(inferenceTestConfig(), client, testLogger())

		assert.NoError(t, c.CheckHealth(context.Background()))
	})

	t.Run("should fail when the runtime is down", func(t *testing.T) {
		client := &fakeInferenceHTTPClient{do: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}}

		c := NewInferenceClientWithClient(inferenceTestConfig(), client, testLogger())

		assert.Error(t, c.CheckHealth(context.Background()))
	})
}
