// Package service implements the two scheduled pipelines: ingestion (provider
// fetch, dedup, store, index) and enrichment (sentiment, content scrape,
// summarize — one phase per article per tick).
package service

import (
	"context"

	"news-enricher/driver"
	"news-enricher/models"
)

// IngestionResult reports what one producer tick did.
type IngestionResult struct {
	Fetched   int `json:"fetched"`
	Inserted  int `json:"inserted"`
	Deleted   int `json:"deleted"`
	IndexSize int `json:"indexSize"`
}

type IngestionService interface {
	// RunIngestionTick fetches new articles from the provider, stores them,
	// and rewrites the cache id index. A provider error aborts the tick with
	// no writes.
	RunIngestionTick(ctx context.Context) (*IngestionResult, error)
}

// ProcessorResult reports what one processor tick did.
type ProcessorResult struct {
	Examined int `json:"examined"`
	Advanced int `json:"advanced"`
	Failed   int `json:"failed"`
}

type EnrichmentService interface {
	// RunProcessorTick advances up to the configured number of pending
	// articles by exactly one enrichment phase each.
	RunProcessorTick(ctx context.Context) (*ProcessorResult, error)
	// ProcessArticle advances one article by one phase on demand. When the
	// article is already fully processed, force republishes it to the cache.
	// The returned message describes what happened.
	ProcessArticle(ctx context.Context, id string, force bool) (*models.Article, string, error)
	// ExtractText refetches the article webpage and returns the extracted
	// text, with structural markers when debug is set. Nothing is persisted.
	ExtractText(ctx context.Context, id string, debug bool) (link string, content string, err error)
}

// PageFetcher retrieves an article webpage and extracts its text. Debug mode
// interleaves structural markers for inspection and must never be persisted.
type PageFetcher interface {
	Fetch(ctx context.Context, link string, debug bool) (string, error)
}

// InferenceRunner is the LLM call surface the enrichment phases use.
type InferenceRunner interface {
	Run(ctx context.Context, messages []driver.Message, maxTokens int) (string, error)
}
