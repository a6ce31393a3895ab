package driver

import (
	"context"
	"fmt"

	"news-enricher/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetCheckpoint returns the singleton processing checkpoint. A missing row
// reads as the zero checkpoint.
func GetCheckpoint(ctx context.Context, db *pgxpool.Pool) (*models.Checkpoint, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var cp models.Checkpoint

	err := db.QueryRow(ctx, `
		SELECT current_article_id, articles_processed_count
		FROM processing_checkpoint
		WHERE id = 1`).
		Scan(&cp.CurrentArticleID, &cp.ArticlesProcessedCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &models.Checkpoint{}, nil
		}

		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &cp, nil
}

// SetCheckpointCurrent records the article the processor is about to work on.
func SetCheckpointCurrent(ctx context.Context, db *pgxpool.Pool, articleID string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	_, err := db.Exec(ctx, `
		INSERT INTO processing_checkpoint (id, current_article_id)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET current_article_id = EXCLUDED.current_article_id`,
		articleID)
	if err != nil {
		return fmt.Errorf("failed to set checkpoint current article: %w", err)
	}

	return nil
}

// ClearCheckpointCurrent clears the in-flight marker and bumps the processed
// counter. Called once per successfully finished phase.
func ClearCheckpointCurrent(ctx context.Context, db *pgxpool.Pool) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	_, err := db.Exec(ctx, `
		INSERT INTO processing_checkpoint (id, current_article_id, articles_processed_count)
		VALUES (1, '', 1)
		ON CONFLICT (id) DO UPDATE SET
			current_article_id = '',
			articles_processed_count = processing_checkpoint.articles_processed_count + 1`)
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	return nil
}
