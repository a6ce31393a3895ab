package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"news-enricher/config"
	"news-enricher/models"

	"github.com/redis/go-redis/v9"
)

const (
	idIndexKey       = "article_ids"
	articleKeyPrefix = "article:"
)

type cacheRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCacheRepository wraps the Redis read cache. Both the id index and the
// per-article records expire after the configured TTL, so a stalled producer
// eventually leaves readers an empty (rather than stale) feed.
func NewCacheRepository(client *redis.Client, cfg *config.Config, logger *slog.Logger) CacheRepository {
	return &cacheRepository{
		client: client,
		ttl:    cfg.Producer.IDIndexTTL,
		logger: logger,
	}
}

func (r *cacheRepository) GetIDIndex(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	raw, err := r.client.Get(ctx, idIndexKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get id index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// A corrupt index is rebuilt by the next producer tick; treat it as
		// missing rather than wedging ingestion.
		r.logger.Warn("discarding unreadable id index", "error", err)
		return nil, nil
	}

	return ids, nil
}

func (r *cacheRepository) PutIDIndex(ctx context.Context, ids []string) error {
	if r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	if ids == nil {
		ids = []string{}
	}

	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal id index: %w", err)
	}

	if err := r.client.Set(ctx, idIndexKey, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store id index: %w", err)
	}

	return nil
}

func (r *cacheRepository) PutArticle(ctx context.Context, article *models.Article) error {
	if r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	raw, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to marshal article %s: %w", article.ID, err)
	}

	if err := r.client.Set(ctx, articleKeyPrefix+article.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache article %s: %w", article.ID, err)
	}

	return nil
}

func (r *cacheRepository) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	raw, err := r.client.Get(ctx, articleKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get cached article %s: %w", id, err)
	}

	var article models.Article
	if err := json.Unmarshal([]byte(raw), &article); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached article %s: %w", id, err)
	}

	return &article, nil
}

func (r *cacheRepository) DeleteArticles(ctx context.Context, ids []string) error {
	if r.client == nil {
		return fmt.Errorf("redis client not available")
	}

	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = articleKeyPrefix + id
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached articles: %w", err)
	}

	return nil
}
