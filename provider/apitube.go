package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"news-enricher/config"
	"news-enricher/models"
)

const apiTubePerPage = 50

// APITubeArticle is the raw article shape consumed from the APITube API.
// The sentiment field is kept raw because the API emits it as an object, a
// bare number, or a bare string depending on plan and endpoint version.
type APITubeArticle struct {
	ID          json.Number     `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Href        string          `json:"href"`
	PublishedAt string          `json:"published_at"`
	Image       string          `json:"image"`
	Source      apiTubeSource   `json:"source"`
	Categories  []apiTubeNamed  `json:"categories"`
	Sentiment   json.RawMessage `json:"sentiment"`
}

type apiTubeSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type apiTubeNamed struct {
	Name string `json:"name"`
}

type apiTubeSentiment struct {
	Overall struct {
		Polarity string  `json:"polarity"`
		Score    float64 `json:"score"`
	} `json:"overall"`
}

type apiTubeResponse struct {
	Status  string           `json:"status"`
	Page    int              `json:"page"`
	Found   int              `json:"found"`
	Results []APITubeArticle `json:"results"`
}

// APITubeProvider fetches Bitcoin news from APITube. APITube supplies
// sentiment, so normalized articles only need the summary phases.
type APITubeProvider struct {
	host           string
	apiKey         string
	scoreThreshold float64
	client         HTTPClient
	logger         *slog.Logger
}

func NewAPITubeProvider(cfg *config.Config, logger *slog.Logger) *APITubeProvider {
	return &APITubeProvider{
		host:           cfg.Provider.APITubeHost,
		apiKey:         cfg.Provider.APITubeAPIKey,
		scoreThreshold: cfg.Inference.SentimentScoreThreshold,
		client:         &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
	}
}

// NewAPITubeProviderWithClient injects a custom HTTP client for tests.
func NewAPITubeProviderWithClient(cfg *config.Config, client HTTPClient, logger *slog.Logger) *APITubeProvider {
	p := NewAPITubeProvider(cfg, logger)
	p.client = client

	return p
}

func (p *APITubeProvider) Name() string {
	return config.ProviderAPITube
}

func (p *APITubeProvider) FetchPage(ctx context.Context, pageToken string) (*Page, error) {
	pageNum := 1

	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid apitube page token %q: %w", pageToken, err)
		}

		pageNum = n
	}

	query := url.Values{}
	query.Set("api_key", p.apiKey)
	query.Set("title", "bitcoin")
	query.Set("language.code", "en")
	query.Set("sort.by", "published_at")
	query.Set("sort.order", "desc")
	query.Set("per_page", strconv.Itoa(apiTubePerPage))
	query.Set("page", strconv.Itoa(pageNum))

	endpoint := p.host + "/v1/news/everything?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create apitube request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apitube request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Warn("failed to close apitube response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read apitube response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var payload apiTubeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse apitube response: %w", err)
	}

	page := &Page{Total: payload.Found}

	for i := range payload.Results {
		page.Articles = append(page.Articles, &payload.Results[i])
	}

	// APITube paginates by page number; there is a next page while the
	// current full page has not exhausted the reported match count.
	if len(payload.Results) == apiTubePerPage && pageNum*apiTubePerPage < payload.Found {
		page.NextToken = strconv.Itoa(pageNum + 1)
	}

	p.logger.DebugContext(ctx, "fetched apitube page",
		"articles", len(page.Articles),
		"page", pageNum,
		"found", payload.Found)

	return page, nil
}

func (p *APITubeProvider) ID(raw any) string {
	article, ok := raw.(*APITubeArticle)
	if !ok {
		return ""
	}

	if article.ID.String() != "" {
		return article.ID.String()
	}

	return article.Href
}

func (p *APITubeProvider) Normalize(raw any) (*models.Article, error) {
	article, ok := raw.(*APITubeArticle)
	if !ok {
		return nil, fmt.Errorf("unexpected raw article type %T", raw)
	}

	id := p.ID(raw)
	if id == "" {
		return nil, fmt.Errorf("apitube article has no usable id")
	}

	title := sanitizeText(article.Title)
	if title == "" {
		return nil, fmt.Errorf("apitube article %s has no title", id)
	}

	var category string
	if len(article.Categories) > 0 {
		category = article.Categories[0].Name
	}

	now := time.Now().UnixMilli()

	return &models.Article{
		ID:             id,
		Title:          title,
		Description:    sanitizeText(article.Description),
		Link:           article.Href,
		PubDate:        parsePubDate(article.PublishedAt),
		Source:         article.Source.Title,
		SourceURL:      article.Source.URI,
		Category:       category,
		ImageURL:       article.Image,
		Sentiment:      p.mapSentiment(article.Sentiment),
		NeedsSentiment: false,
		NeedsSummary:   true,
		QueuedAt:       now,
	}, nil
}

// mapSentiment folds the provider's sentiment value into the three-label
// enum. Preference order: overall.polarity string, overall.score against the
// configured threshold, then a bare number or string. Anything unreadable is
// neutral.
func (p *APITubeProvider) mapSentiment(raw json.RawMessage) models.Sentiment {
	if len(raw) == 0 || string(raw) == "null" {
		return models.SentimentNeutral
	}

	var obj apiTubeSentiment
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s := polarityToSentiment(obj.Overall.Polarity); s != "" {
			return s
		}

		if obj.Overall.Score != 0 {
			return p.scoreToSentiment(obj.Overall.Score)
		}
	}

	var score float64
	if err := json.Unmarshal(raw, &score); err == nil && score != 0 {
		return p.scoreToSentiment(score)
	}

	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		if s := polarityToSentiment(label); s != "" {
			return s
		}
	}

	return models.SentimentNeutral
}

func (p *APITubeProvider) scoreToSentiment(score float64) models.Sentiment {
	switch {
	case score > p.scoreThreshold:
		return models.SentimentPositive
	case score < -p.scoreThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func polarityToSentiment(polarity string) models.Sentiment {
	switch strings.ToLower(strings.TrimSpace(polarity)) {
	case "positive":
		return models.SentimentPositive
	case "negative":
		return models.SentimentNegative
	case "neutral":
		return models.SentimentNeutral
	default:
		return ""
	}
}
