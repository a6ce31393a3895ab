package service

import (
	"context"
	"fmt"
	"log/slog"

	"news-enricher/config"
	"news-enricher/models"
	"news-enricher/provider"
	"news-enricher/repository"
)

type ingestionService struct {
	provider    provider.Provider
	articleRepo repository.ArticleRepository
	cacheRepo   repository.CacheRepository
	cfg         *config.Config
	logger      *slog.Logger
}

func NewIngestionService(
	p provider.Provider,
	articleRepo repository.ArticleRepository,
	cacheRepo repository.CacheRepository,
	cfg *config.Config,
	logger *slog.Logger,
) IngestionService {
	return &ingestionService{
		provider:    p,
		articleRepo: articleRepo,
		cacheRepo:   cacheRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// RunIngestionTick fetches provider pages newest-first until it sees an
// already-indexed article, then commits: batch insert, one id index rewrite,
// and an optional trim of rows that fell off the index. Any provider error
// aborts the whole tick before the first write, so a half-fetched run never
// commits a partial picture.
func (s *ingestionService) RunIngestionTick(ctx context.Context) (*IngestionResult, error) {
	knownIDs, err := s.cacheRepo.GetIDIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load id index: %w", err)
	}

	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	newArticles, err := s.fetchNewArticles(ctx, known)
	if err != nil {
		return nil, err
	}

	result := &IngestionResult{Fetched: len(newArticles)}

	if len(newArticles) > 0 {
		inserted, err := s.articleRepo.InsertBatch(ctx, newArticles)
		if err != nil {
			return nil, fmt.Errorf("failed to store new articles: %w", err)
		}

		result.Inserted = inserted
	}

	index := s.rebuildIndex(newArticles, knownIDs)
	if err := s.cacheRepo.PutIDIndex(ctx, index); err != nil {
		return nil, fmt.Errorf("failed to store id index: %w", err)
	}

	result.IndexSize = len(index)

	if s.cfg.Producer.DeleteOldArticles {
		deleted, err := s.trimStore(ctx, index)
		if err != nil {
			return nil, err
		}

		result.Deleted = deleted
	}

	s.logger.InfoContext(ctx, "ingestion tick finished",
		"provider", s.provider.Name(),
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"deleted", result.Deleted,
		"index_size", result.IndexSize)

	return result, nil
}

// fetchNewArticles paginates until a page contains a known article id, the
// provider reports no next page, or the page budget runs out. A page that
// contains a known id is still scanned to its end, since providers can
// interleave late-arriving articles with ones already seen.
func (s *ingestionService) fetchNewArticles(ctx context.Context, known map[string]bool) ([]*models.Article, error) {
	var (
		articles  []*models.Article
		seen      = make(map[string]bool)
		pageToken string
	)

	for pageNum := 1; pageNum <= s.cfg.Producer.MaxPages; pageNum++ {
		page, err := s.provider.FetchPage(ctx, pageToken)
		if err != nil {
			return nil, fmt.Errorf("provider fetch failed on page %d: %w", pageNum, err)
		}

		sawKnown := false

		for _, raw := range page.Articles {
			id := s.provider.ID(raw)
			if id == "" {
				s.logger.WarnContext(ctx, "skipping article with no derivable id",
					"provider", s.provider.Name())
				continue
			}

			if known[id] {
				sawKnown = true
				continue
			}

			if seen[id] {
				continue
			}

			article, err := s.provider.Normalize(raw)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping unnormalizable article",
					"article_id", id, "error", err)
				continue
			}

			seen[id] = true
			articles = append(articles, article)
		}

		if sawKnown || len(page.Articles) == 0 || page.NextToken == "" {
			break
		}

		pageToken = page.NextToken
	}

	return articles, nil
}

// rebuildIndex prepends the new ids (newest first, matching fetch order) to
// the previous index, dedups, and truncates to the retention cap.
func (s *ingestionService) rebuildIndex(newArticles []*models.Article, previous []string) []string {
	index := make([]string, 0, len(newArticles)+len(previous))
	present := make(map[string]bool, len(newArticles)+len(previous))

	for _, a := range newArticles {
		if !present[a.ID] {
			present[a.ID] = true
			index = append(index, a.ID)
		}
	}

	for _, id := range previous {
		if !present[id] {
			present[id] = true
			index = append(index, id)
		}
	}

	if len(index) > s.cfg.Producer.MaxStoredArticles {
		index = index[:s.cfg.Producer.MaxStoredArticles]
	}

	return index
}

// trimStore deletes database rows (and their cached records) whose ids fell
// off the index.
func (s *ingestionService) trimStore(ctx context.Context, index []string) (int, error) {
	dbIDs, err := s.articleRepo.GetAllIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored article ids: %w", err)
	}

	indexed := make(map[string]bool, len(index))
	for _, id := range index {
		indexed[id] = true
	}

	var stale []string
	for _, id := range dbIDs {
		if !indexed[id] {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	deleted, err := s.articleRepo.DeleteByIDs(ctx, stale)
	if err != nil {
		return deleted, fmt.Errorf("failed to trim old articles: %w", err)
	}

	if err := s.cacheRepo.DeleteArticles(ctx, stale); err != nil {
		// The cached copies expire on their own; a failed cache delete is
		// not worth failing the tick over.
		s.logger.WarnContext(ctx, "failed to delete trimmed articles from cache",
			"count", len(stale), "error", err)
	}

	return deleted, nil
}
