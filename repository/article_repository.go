package repository

import (
	"context"
	"fmt"
	"log/slog"

	"news-enricher/config"
	"news-enricher/driver"
	"news-enricher/models"
	"news-enricher/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

type articleRepository struct {
	db      *pgxpool.Pool
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewArticleRepository wraps the Postgres driver. Read queries used by the
// scheduled jobs retry on transient failures; writes do not, so a job tick
// fails fast and the next tick picks the work up again.
func NewArticleRepository(db *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) ArticleRepository {
	retrier := retry.NewRetrier(retry.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		JitterFactor:  cfg.Retry.JitterFactor,
	}, retryableDBError, logger)

	return &articleRepository{db: db, retrier: retrier, logger: logger}
}

// retryableDBError treats every database error as transient. Permanent
// failures (bad SQL, missing table) surface quickly anyway because the
// attempt budget is small.
func retryableDBError(err error) bool {
	return err != nil
}

func (r *articleRepository) InsertBatch(ctx context.Context, articles []*models.Article) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection not available")
	}

	return driver.InsertArticlesBatch(ctx, r.db, articles)
}

func (r *articleRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if r.db == nil {
		return fmt.Errorf("database connection not available")
	}

	return driver.UpdateArticle(ctx, r.db, id, fields)
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var article *models.Article

	err := r.retrier.Do(ctx, func() error {
		var err error
		article, err = driver.GetArticleByID(ctx, r.db, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return article, nil
}

func (r *articleRepository) GetPending(ctx context.Context, limit int) ([]*models.Article, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var articles []*models.Article

	err := r.retrier.Do(ctx, func() error {
		var err error
		articles, err = driver.GetPendingArticles(ctx, r.db, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	return articles, nil
}

func (r *articleRepository) GetAllIDs(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var ids []string

	err := r.retrier.Do(ctx, func() error {
		var err error
		ids, err = driver.GetAllArticleIDs(ctx, r.db)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *articleRepository) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection not available")
	}

	return driver.DeleteArticlesByIDs(ctx, r.db, ids)
}

func (r *articleRepository) GetStats(ctx context.Context) (*models.ProcessingStats, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	return driver.GetProcessingStats(ctx, r.db)
}

type checkpointRepository struct {
	db *pgxpool.Pool
}

func NewCheckpointRepository(db *pgxpool.Pool) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Get(ctx context.Context) (*models.Checkpoint, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	return driver.GetCheckpoint(ctx, r.db)
}

func (r *checkpointRepository) SetCurrent(ctx context.Context, articleID string) error {
	if r.db == nil {
		return fmt.Errorf("database connection not available")
	}

	return driver.SetCheckpointCurrent(ctx, r.db, articleID)
}

func (r *checkpointRepository) Clear(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("database connection not available")
	}

	return driver.ClearCheckpointCurrent(ctx, r.db)
}
