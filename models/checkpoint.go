package models

// Checkpoint is the singleton processing checkpoint row. It records which
// article the processor is currently working on, for crash observability.
// Correctness does not depend on it: all phase state lives on the article.
type Checkpoint struct {
	CurrentArticleID        string `db:"current_article_id" json:"currentArticleId,omitempty"`
	ArticlesProcessedCount  int64  `db:"articles_processed_count" json:"articlesProcessedCount"`
}

// ProcessingStats summarizes article store state for health reporting.
type ProcessingStats struct {
	TotalArticles   int64 `json:"totalArticles"`
	PendingArticles int64 `json:"pendingArticles"`
	FullyProcessed  int64 `json:"fullyProcessed"`
}
