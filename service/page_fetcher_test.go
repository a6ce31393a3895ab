package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"news-enricher/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetcherConfig() *config.Config {
	cfg := testConfig()
	cfg.HTTP.UserAgent = "Mozilla/5.0 Chrome/120.0.0.0"
	cfg.HTTP.EnableBrowserHeaders = true

	return cfg
}

func TestPageFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("should extract text from the fetched page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body><nav>menu</nav><p>Bitcoin story body</p></body></html>`))
		}))
		defer server.Close()

		fetcher := NewPageFetcher(fetcherConfig(), testLogger())

		content, err := fetcher.Fetch(ctx, server.URL, false)
		require.NoError(t, err)
		assert.Equal(t, "Bitcoin story body", content)
	})

	t.Run("should send browser-like headers", func(t *testing.T) {
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			_, _ = w.Write([]byte(`<p>ok</p>`))
		}))
		defer server.Close()

		fetcher := NewPageFetcher(fetcherConfig(), testLogger())

		_, err := fetcher.Fetch(ctx, server.URL, false)
		require.NoError(t, err)

		assert.Contains(t, got.Get("User-Agent"), "Chrome")
		assert.NotEmpty(t, got.Get("Accept-Language"))
	})

	t.Run("should fail on a non-2xx page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer server.Close()

		fetcher := NewPageFetcher(fetcherConfig(), testLogger())

		_, err := fetcher.Fetch(ctx, server.URL, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "410")
	})

	t.Run("should truncate to the content budget", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<body>"))
			for i := 0; i < 1000; i++ {
				_, _ = w.Write([]byte("<p>ten chars!</p>"))
			}
			_, _ = w.Write([]byte("</body>"))
		}))
		defer server.Close()

		cfg := fetcherConfig()
		cfg.Processor.MaxContentChars = 100

		fetcher := NewPageFetcher(cfg, testLogger())

		content, err := fetcher.Fetch(ctx, server.URL, false)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(content), 100)
		assert.NotEmpty(t, content)
	})

	t.Run("should emit markers in debug mode", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<body><p>Story</p></body>`))
		}))
		defer server.Close()

		fetcher := NewPageFetcher(fetcherConfig(), testLogger())

		content, err := fetcher.Fetch(ctx, server.URL, true)
		require.NoError(t, err)
		assert.Contains(t, content, "[p]")
		assert.Contains(t, content, "Story")
	})
}
