package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"news-enricher/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const articleColumns = `id, title, description, link, pub_date, source, source_url,
	category, image_url, sentiment, ai_summary, needs_sentiment, needs_summary,
	content_timeout, summary_error, extracted_content, queued_at, processed_at,
	created_at, updated_at`

// updatableColumns is the whitelist for partial updates. updated_at is always
// set by UpdateArticle itself.
var updatableColumns = map[string]bool{
	"sentiment":         true,
	"ai_summary":        true,
	"needs_sentiment":   true,
	"needs_summary":     true,
	"content_timeout":   true,
	"summary_error":     true,
	"extracted_content": true,
	"processed_at":      true,
}

func scanArticle(row pgx.Row) (*models.Article, error) {
	var (
		a         models.Article
		sentiment string
	)

	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Link, &a.PubDate, &a.Source,
		&a.SourceURL, &a.Category, &a.ImageURL, &sentiment, &a.AISummary,
		&a.NeedsSentiment, &a.NeedsSummary, &a.ContentTimeout, &a.SummaryError,
		&a.ExtractedContent, &a.QueuedAt, &a.ProcessedAt, &a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Sentiment = models.Sentiment(sentiment)

	return &a, nil
}

// InsertArticlesBatch inserts the given articles, silently skipping ids that
// already exist. It returns how many rows were actually inserted.
func InsertArticlesBatch(ctx context.Context, db *pgxpool.Pool, articles []*models.Article) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	if len(articles) == 0 {
		return 0, nil
	}

	now := time.Now().UnixMilli()

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(`
			INSERT INTO articles (`+articleColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
				$14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (id) DO NOTHING`,
			a.ID, a.Title, a.Description, a.Link, a.PubDate, a.Source,
			a.SourceURL, a.Category, a.ImageURL, string(a.Sentiment),
			a.AISummary, a.NeedsSentiment, a.NeedsSummary, a.ContentTimeout,
			a.SummaryError, a.ExtractedContent, a.QueuedAt, a.ProcessedAt,
			now, now,
		)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range articles {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert article batch: %w", err)
		}

		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// UpdateArticle applies a partial field update to one article. Keys are
// column names; unknown columns are rejected. updated_at is always touched.
func UpdateArticle(ctx context.Context, db *pgxpool.Pool, id string, fields map[string]any) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if len(fields) == 0 {
		return fmt.Errorf("no fields to update for article %s", id)
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)

	for column, value := range fields {
		if !updatableColumns[column] {
			return fmt.Errorf("column %s is not updatable", column)
		}

		if s, ok := value.(models.Sentiment); ok {
			value = string(s)
		}

		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	args = append(args, time.Now().UnixMilli())
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE articles SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args))

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %s not found", id)
	}

	return nil
}

// GetArticleByID returns the article, or nil when no row exists.
func GetArticleByID(ctx context.Context, db *pgxpool.Pool, id string) (*models.Article, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	row := db.QueryRow(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE id = $1", id)

	article, err := scanArticle(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}

	return article, nil
}

// GetPendingArticles returns up to limit articles that still need an
// enrichment phase. Articles whose scraping budget is untouched come first,
// then articles that already have content waiting to be summarized, then
// articles mid-scrape; within each tier, newest first.
func GetPendingArticles(ctx context.Context, db *pgxpool.Pool, limit int) ([]*models.Article, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := db.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE needs_sentiment OR needs_summary
		ORDER BY
			CASE
				WHEN content_timeout = 0 THEN 0
				WHEN extracted_content <> '' THEN 1
				ELSE 2
			END,
			pub_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending article: %w", err)
		}

		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending articles: %w", err)
	}

	return articles, nil
}

// GetAllArticleIDs returns every stored article id, newest first.
func GetAllArticleIDs(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := db.Query(ctx,
		"SELECT id FROM articles ORDER BY pub_date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query article ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan article id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read article ids: %w", err)
	}

	return ids, nil
}

const deleteBatchSize = 500

// DeleteArticlesByIDs removes the given articles in batches so a large trim
// never builds one oversized statement. It returns how many rows were
// deleted.
func DeleteArticlesByIDs(ctx context.Context, db *pgxpool.Pool, ids []string) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	deleted := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		tag, err := db.Exec(ctx,
			"DELETE FROM articles WHERE id = ANY($1)", ids[start:end])
		if err != nil {
			return deleted, fmt.Errorf("failed to delete article batch: %w", err)
		}

		deleted += int(tag.RowsAffected())
	}

	return deleted, nil
}

// GetProcessingStats summarizes the enrichment backlog.
func GetProcessingStats(ctx context.Context, db *pgxpool.Pool) (*models.ProcessingStats, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var stats models.ProcessingStats

	err := db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE needs_sentiment OR needs_summary),
			COUNT(*) FILTER (WHERE NOT needs_sentiment AND NOT needs_summary)
		FROM articles`).
		Scan(&stats.TotalArticles, &stats.PendingArticles, &stats.FullyProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing stats: %w", err)
	}

	return &stats, nil
}
