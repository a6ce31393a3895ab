package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"news-enricher/config"
	"news-enricher/utils/htmlextract"
)

// ErrBadStatus marks a fetch that reached the site but got a non-2xx answer.
// Callers use it to distinguish refusals from transport failures.
var ErrBadStatus = errors.New("bad response status")

// HTTPClient allows injecting a fake transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type pageFetcher struct {
	client   HTTPClient
	headers  map[string]string
	maxChars int
	logger   *slog.Logger
}

// NewPageFetcher builds the article webpage fetcher. It presents browser-like
// headers because many news sites refuse bare client requests, and it streams
// the response body through the extractor so oversized pages stop downloading
// once the content budget is full.
func NewPageFetcher(cfg *config.Config, logger *slog.Logger) PageFetcher {
	return &pageFetcher{
		client:   &http.Client{Timeout: cfg.HTTP.ArticleFetchTimeout},
		headers:  cfg.HTTP.GetBrowserHeaders(),
		maxChars: cfg.Processor.MaxContentChars,
		logger:   logger,
	}
}

// NewPageFetcherWithClient injects a custom HTTP client for tests.
func NewPageFetcherWithClient(cfg *config.Config, client HTTPClient, logger *slog.Logger) PageFetcher {
	f := NewPageFetcher(cfg, logger).(*pageFetcher)
	f.client = client

	return f
}

func (f *pageFetcher) Fetch(ctx context.Context, link string, debug bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create page request: %w", err)
	}

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("page fetch failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Debug("failed to close page response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("page fetch returned status %d: %w", resp.StatusCode, ErrBadStatus)
	}

	extractor := htmlextract.NewExtractor(htmlextract.Options{
		MaxChars: f.maxChars,
		Debug:    debug,
	})

	return extractor.Extract(resp.Body), nil
}
