// Package repository exposes the storage layers behind small interfaces so
// the services can be tested with in-memory fakes.
package repository

import (
	"context"

	"news-enricher/models"
)

// ArticleRepository is the authoritative article store.
type ArticleRepository interface {
	// InsertBatch stores articles, skipping ids that already exist. Returns
	// how many rows were actually inserted.
	InsertBatch(ctx context.Context, articles []*models.Article) (int, error)
	// Update applies a partial column update to one article.
	Update(ctx context.Context, id string, fields map[string]any) error
	// GetByID returns the article, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*models.Article, error)
	// GetPending returns up to limit articles that still need enrichment,
	// fresh budgets first, then content-in-hand, then mid-scrape.
	GetPending(ctx context.Context, limit int) ([]*models.Article, error)
	// GetAllIDs returns every stored article id, newest first.
	GetAllIDs(ctx context.Context) ([]string, error)
	// DeleteByIDs removes articles, returning the deleted row count.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	// GetStats summarizes the enrichment backlog.
	GetStats(ctx context.Context) (*models.ProcessingStats, error)
}

// CheckpointRepository tracks the processor's in-flight article and the
// lifetime processed counter.
type CheckpointRepository interface {
	Get(ctx context.Context) (*models.Checkpoint, error)
	SetCurrent(ctx context.Context, articleID string) error
	// Clear resets the in-flight marker and increments the processed counter.
	Clear(ctx context.Context) error
}

// CacheRepository is the read-side cache: the recency-ordered id index and
// the per-article records served to readers.
type CacheRepository interface {
	// GetIDIndex returns the stored id list. A missing index reads as empty.
	GetIDIndex(ctx context.Context) ([]string, error)
	// PutIDIndex replaces the id list and refreshes its TTL.
	PutIDIndex(ctx context.Context, ids []string) error
	// PutArticle stores one article record under its cache key with TTL.
	PutArticle(ctx context.Context, article *models.Article) error
	// GetArticle returns the cached article, or nil when absent.
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	// DeleteArticles removes the given article records from the cache.
	DeleteArticles(ctx context.Context, ids []string) error
}
