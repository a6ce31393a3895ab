package models

import "time"

// Sentiment is the three-label classification attached to an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Article is the canonical per-article record. It carries both the
// provider-supplied fields and the incremental processing state the
// enrichment engine advances one phase at a time.
//
// Empty string / zero values stand for absent optional fields, both in the
// database and in the JSON published to the article cache.
type Article struct {
	ID          string `db:"id"          json:"id"`
	Title       string `db:"title"       json:"title"`
	Description string `db:"description" json:"description,omitempty"`
	Link        string `db:"link"        json:"link,omitempty"`

	PubDate   time.Time `db:"pub_date"   json:"pubDate"`
	Source    string    `db:"source"     json:"source,omitempty"`
	SourceURL string    `db:"source_url" json:"sourceUrl,omitempty"`
	Category  string    `db:"category"   json:"category,omitempty"`
	ImageURL  string    `db:"image_url"  json:"imageUrl,omitempty"`

	Sentiment Sentiment `db:"sentiment"  json:"sentiment,omitempty"`
	AISummary string    `db:"ai_summary" json:"aiSummary,omitempty"`

	NeedsSentiment   bool   `db:"needs_sentiment"   json:"needsSentiment"`
	NeedsSummary     bool   `db:"needs_summary"     json:"needsSummary"`
	ContentTimeout   int    `db:"content_timeout"   json:"contentTimeout"`
	SummaryError     string `db:"summary_error"     json:"summaryError,omitempty"`
	ExtractedContent string `db:"extracted_content" json:"extractedContent,omitempty"`

	QueuedAt    int64 `db:"queued_at"    json:"queuedAt"`
	ProcessedAt int64 `db:"processed_at" json:"processedAt,omitempty"`
	CreatedAt   int64 `db:"created_at"   json:"createdAt"`
	UpdatedAt   int64 `db:"updated_at"   json:"updatedAt"`
}

// FullyProcessed reports whether every enrichment phase has run to
// completion. Only fully processed articles may be published to the cache.
func (a *Article) FullyProcessed() bool {
	return !a.NeedsSentiment && !a.NeedsSummary
}
