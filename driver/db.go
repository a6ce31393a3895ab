// Package driver contains the low-level data access code: Postgres queries,
// the Redis client, and the inference runtime HTTP client. Repositories wrap
// these functions behind interfaces.
package driver

import (
	"context"
	"fmt"

	"news-enricher/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Init creates the Postgres connection pool.
func Init(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

const articlesSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	link              TEXT NOT NULL DEFAULT '',
	pub_date          TIMESTAMPTZ NOT NULL,
	source            TEXT NOT NULL DEFAULT '',
	source_url        TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	image_url         TEXT NOT NULL DEFAULT '',
	sentiment         TEXT NOT NULL DEFAULT '',
	ai_summary        TEXT NOT NULL DEFAULT '',
	needs_sentiment   BOOLEAN NOT NULL DEFAULT FALSE,
	needs_summary     BOOLEAN NOT NULL DEFAULT FALSE,
	content_timeout   INTEGER NOT NULL DEFAULT 0,
	summary_error     TEXT NOT NULL DEFAULT '',
	extracted_content TEXT NOT NULL DEFAULT '',
	queued_at         BIGINT NOT NULL DEFAULT 0,
	processed_at      BIGINT NOT NULL DEFAULT 0,
	created_at        BIGINT NOT NULL DEFAULT 0,
	updated_at        BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_pending
	ON articles (pub_date DESC)
	WHERE needs_sentiment OR needs_summary;
`

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS processing_checkpoint (
	id                       INTEGER PRIMARY KEY CHECK (id = 1),
	current_article_id       TEXT NOT NULL DEFAULT '',
	articles_processed_count BIGINT NOT NULL DEFAULT 0
);
`

// EnsureSchema creates the tables the service owns.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	for _, schema := range []string{articlesSchema, checkpointSchema} {
		if _, err := db.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}
