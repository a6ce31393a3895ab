package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news-enricher/config"
	"news-enricher/models"
)

// NewsDataArticle is the raw article shape consumed from the NewsData API.
// Only the fields the normalizer reads are declared.
type NewsDataArticle struct {
	ArticleID   string      `json:"article_id"`
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Link        string      `json:"link"`
	Description string      `json:"description"`
	PubDate     string      `json:"pubDate"`
	SourceName  string      `json:"source_name"`
	SourceID    string      `json:"source_id"`
	SourceURL   string      `json:"source_url"`
	ImageURL    string      `json:"image_url"`
}

type newsDataResponse struct {
	Status       string            `json:"status"`
	TotalResults int               `json:"totalResults"`
	Results      []NewsDataArticle `json:"results"`
	NextPage     string            `json:"nextPage"`
}

// NewsDataProvider fetches Bitcoin news from the NewsData crypto endpoint.
// NewsData supplies no sentiment, so normalized articles need both
// enrichment phases.
type NewsDataProvider struct {
	host   string
	apiKey string
	client HTTPClient
	logger *slog.Logger
}

func NewNewsDataProvider(cfg *config.Config, logger *slog.Logger) *NewsDataProvider {
	return &NewsDataProvider{
		host:   cfg.Provider.NewsDataHost,
		apiKey: cfg.Provider.NewsDataAPIKey,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// NewNewsDataProviderWithClient injects a custom HTTP client for tests.
func NewNewsDataProviderWithClient(cfg *config.Config, client HTTPClient, logger *slog.Logger) *NewsDataProvider {
	p := NewNewsDataProvider(cfg, logger)
	p.client = client

	return p
}

func (p *NewsDataProvider) Name() string {
	return config.ProviderNewsData
}

func (p *NewsDataProvider) FetchPage(ctx context.Context, pageToken string) (*Page, error) {
	query := url.Values{}
	query.Set("apikey", p.apiKey)
	query.Set("coin", "btc")
	query.Set("language", "en")

	if pageToken != "" {
		query.Set("page", pageToken)
	}

	endpoint := p.host + "/api/1/crypto?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create newsdata request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsdata request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Warn("failed to close newsdata response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read newsdata response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var payload newsDataResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse newsdata response: %w", err)
	}

	page := &Page{
		NextToken: payload.NextPage,
		Total:     payload.TotalResults,
	}

	for i := range payload.Results {
		page.Articles = append(page.Articles, &payload.Results[i])
	}

	p.logger.DebugContext(ctx, "fetched newsdata page",
		"articles", len(page.Articles),
		"total", page.Total,
		"has_next", page.NextToken != "")

	return page, nil
}

func (p *NewsDataProvider) ID(raw any) string {
	article, ok := raw.(*NewsDataArticle)
	if !ok {
		return ""
	}

	if article.ArticleID != "" {
		return article.ArticleID
	}

	if article.ID.String() != "" {
		return article.ID.String()
	}

	return article.Link
}

func (p *NewsDataProvider) Normalize(raw any) (*models.Article, error) {
	article, ok := raw.(*NewsDataArticle)
	if !ok {
		return nil, fmt.Errorf("unexpected raw article type %T", raw)
	}

	id := p.ID(raw)
	if id == "" {
		return nil, fmt.Errorf("newsdata article has no usable id")
	}

	title := sanitizeText(article.Title)
	if title == "" {
		return nil, fmt.Errorf("newsdata article %s has no title", id)
	}

	source := article.SourceName
	if source == "" {
		source = article.SourceID
	}

	now := time.Now().UnixMilli()

	return &models.Article{
		ID:             id,
		Title:          title,
		Description:    sanitizeText(article.Description),
		Link:           article.Link,
		PubDate:        parsePubDate(article.PubDate),
		Source:         source,
		SourceURL:      article.SourceURL,
		ImageURL:       article.ImageURL,
		NeedsSentiment: true,
		NeedsSummary:   true,
		QueuedAt:       now,
	}, nil
}
