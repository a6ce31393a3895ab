// Package provider abstracts the upstream news APIs behind a single
// capability set: paginated fetch, normalization into the canonical article
// record, and stable id derivation. A factory selects the concrete variant
// at startup from configuration.
package provider

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"news-enricher/config"
	"news-enricher/models"

	"github.com/microcosm-cc/bluemonday"
)

// Page is one provider result page. Articles must be ordered newest first;
// the producer's early-exit dedup depends on that ordering.
type Page struct {
	Articles  []any
	NextToken string
	Total     int
}

// Provider is the upstream article source capability set.
type Provider interface {
	Name() string
	// FetchPage fetches one page. An empty pageToken requests the first page.
	FetchPage(ctx context.Context, pageToken string) (*Page, error)
	// Normalize maps a raw provider article into the canonical record.
	Normalize(raw any) (*models.Article, error)
	// ID derives the stable article id, or "" when none can be derived.
	ID(raw any) string
}

// ProviderError is returned for non-2xx upstream responses. It carries the
// status and any error body the upstream returned.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// HTTPClient allows injecting a fake transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewProvider selects the configured provider variant. Missing credentials
// are rejected at config validation time; an unknown name is a wiring bug.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider.Name {
	case config.ProviderNewsData:
		return NewNewsDataProvider(cfg, logger), nil
	case config.ProviderAPITube:
		return NewAPITubeProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown news provider: %s", cfg.Provider.Name)
	}
}

var stripPolicy = bluemonday.StrictPolicy()

// sanitizeText strips any markup a provider leaked into a text field and
// collapses whitespace. The strict policy re-escapes entities, so the result
// is unescaped afterwards to plain text.
func sanitizeText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)

	return strings.Join(strings.Fields(s), " ")
}

// parsePubDate accepts the timestamp layouts the providers are known to
// emit. A value that parses with none of them falls back to now so the
// article still sorts into the index.
func parsePubDate(v string) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}

	return time.Now().UTC()
}
