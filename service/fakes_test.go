package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"news-enricher/config"
	"news-enricher/driver"
	"news-enricher/models"
	"news-enricher/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{ArticleFetchTimeout: time.Second},
		Producer: config.ProducerConfig{
			MaxStoredArticles: 100,
			MaxPages:          10,
			IDIndexTTL:        time.Hour,
		},
		Processor: config.ProcessorConfig{
			MaxArticlesPerRun:       5,
			MaxContentChars:         10240,
			MaxContentFetchAttempts: 3,
		},
		Inference: config.InferenceConfig{
			SentimentMaxTokens: 10,
			SummaryMaxTokens:   1024,
		},
	}
}

type fakeRaw struct {
	id    string
	title string
}

type fakeProvider struct {
	pages    []*provider.Page
	fetchErr error
	fetched  []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchPage(ctx context.Context, pageToken string) (*provider.Page, error) {
	p.fetched = append(p.fetched, pageToken)

	if p.fetchErr != nil {
		return nil, p.fetchErr
	}

	idx := len(p.fetched) - 1
	if idx >= len(p.pages) {
		return &provider.Page{}, nil
	}

	return p.pages[idx], nil
}

func (p *fakeProvider) ID(raw any) string {
	r, ok := raw.(*fakeRaw)
	if !ok {
		return ""
	}

	return r.id
}

func (p *fakeProvider) Normalize(raw any) (*models.Article, error) {
	r := raw.(*fakeRaw)
	if r.title == "" {
		return nil, errors.New("no title")
	}

	return &models.Article{
		ID:             r.id,
		Title:          r.title,
		Link:           "https://x/" + r.id,
		NeedsSentiment: true,
		NeedsSummary:   true,
		QueuedAt:       time.Now().UnixMilli(),
	}, nil
}

type fakeArticleRepo struct {
	articles  map[string]*models.Article
	pending   []*models.Article
	allIDs    []string
	inserted  [][]*models.Article
	updates   map[string][]map[string]any
	deleted   [][]string
	insertErr error
	updateErr error
	getErr    error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		articles: make(map[string]*models.Article),
		updates:  make(map[string][]map[string]any),
	}
}

func (r *fakeArticleRepo) InsertBatch(ctx context.Context, articles []*models.Article) (int, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}

	r.inserted = append(r.inserted, articles)
	for _, a := range articles {
		r.articles[a.ID] = a
	}

	return len(articles), nil
}

func (r *fakeArticleRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.updates[id] = append(r.updates[id], fields)

	return nil
}

func (r *fakeArticleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}

	return r.articles[id], nil
}

func (r *fakeArticleRepo) GetPending(ctx context.Context, limit int) ([]*models.Article, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}

	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}

	return r.pending, nil
}

func (r *fakeArticleRepo) GetAllIDs(ctx context.Context) ([]string, error) {
	return r.allIDs, nil
}

func (r *fakeArticleRepo) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	r.deleted = append(r.deleted, ids)
	return len(ids), nil
}

func (r *fakeArticleRepo) GetStats(ctx context.Context) (*models.ProcessingStats, error) {
	return &models.ProcessingStats{TotalArticles: int64(len(r.articles))}, nil
}

type fakeCacheRepo struct {
	index      []string
	indexErr   error
	putIndexes [][]string
	putErr     error
	published  []*models.Article
	deleted    [][]string
}

func (c *fakeCacheRepo) GetIDIndex(ctx context.Context) ([]string, error) {
	return c.index, c.indexErr
}

func (c *fakeCacheRepo) PutIDIndex(ctx context.Context, ids []string) error {
	if c.putErr != nil {
		return c.putErr
	}

	c.putIndexes = append(c.putIndexes, ids)

	return nil
}

func (c *fakeCacheRepo) PutArticle(ctx context.Context, article *models.Article) error {
	if c.putErr != nil {
		return c.putErr
	}

	c.published = append(c.published, article)

	return nil
}

func (c *fakeCacheRepo) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	for _, a := range c.published {
		if a.ID == id {
			return a, nil
		}
	}

	return nil, nil
}

func (c *fakeCacheRepo) DeleteArticles(ctx context.Context, ids []string) error {
	c.deleted = append(c.deleted, ids)
	return nil
}

type fakeCheckpointRepo struct {
	setCalls   []string
	clearCalls int
}

func (c *fakeCheckpointRepo) Get(ctx context.Context) (*models.Checkpoint, error) {
	return &models.Checkpoint{}, nil
}

func (c *fakeCheckpointRepo) SetCurrent(ctx context.Context, articleID string) error {
	c.setCalls = append(c.setCalls, articleID)
	return nil
}

func (c *fakeCheckpointRepo) Clear(ctx context.Context) error {
	c.clearCalls++
	return nil
}

type fakeFetcher struct {
	content   string
	err       error
	calls     []string
	lastDebug bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, link string, debug bool) (string, error) {
	f.calls = append(f.calls, link)
	f.lastDebug = debug

	return f.content, f.err
}

type fakeInference struct {
	response string
	err      error
	prompts  [][]driver.Message
}

func (f *fakeInference) Run(ctx context.Context, messages []driver.Message, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, messages)
	return f.response, f.err
}
