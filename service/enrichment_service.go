package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news-enricher/config"
	"news-enricher/driver"
	"news-enricher/models"
	"news-enricher/repository"
)

// ErrArticleNotFound is returned by ProcessArticle for an unknown id.
var ErrArticleNotFound = errors.New("article not found")

type enrichmentService struct {
	articleRepo    repository.ArticleRepository
	checkpointRepo repository.CheckpointRepository
	cacheRepo      repository.CacheRepository
	fetcher        PageFetcher
	inference      InferenceRunner
	cfg            *config.Config
	logger         *slog.Logger
}

func NewEnrichmentService(
	articleRepo repository.ArticleRepository,
	checkpointRepo repository.CheckpointRepository,
	cacheRepo repository.CacheRepository,
	fetcher PageFetcher,
	inference InferenceRunner,
	cfg *config.Config,
	logger *slog.Logger,
) EnrichmentService {
	return &enrichmentService{
		articleRepo:    articleRepo,
		checkpointRepo: checkpointRepo,
		cacheRepo:      cacheRepo,
		fetcher:        fetcher,
		inference:      inference,
		cfg:            cfg,
		logger:         logger,
	}
}

// RunProcessorTick advances each pending article by exactly one phase. An
// article therefore needs several ticks to go from queued to fully processed,
// which keeps any single tick's inference and scraping load bounded.
func (s *enrichmentService) RunProcessorTick(ctx context.Context) (*ProcessorResult, error) {
	articles, err := s.articleRepo.GetPending(ctx, s.cfg.Processor.MaxArticlesPerRun)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending articles: %w", err)
	}

	result := &ProcessorResult{Examined: len(articles)}

	for _, article := range articles {
		if err := s.advanceAndPersist(ctx, article); err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "failed to advance article",
				"article_id", article.ID, "error", err)
			continue
		}

		result.Advanced++
	}

	s.logger.InfoContext(ctx, "processor tick finished",
		"examined", result.Examined,
		"advanced", result.Advanced,
		"failed", result.Failed)

	return result, nil
}

func (s *enrichmentService) ProcessArticle(ctx context.Context, id string, force bool) (*models.Article, string, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load article %s: %w", id, err)
	}

	if article == nil {
		return nil, "", ErrArticleNotFound
	}

	if article.FullyProcessed() {
		if !force {
			return article, "article already fully processed", nil
		}

		if err := s.cacheRepo.PutArticle(ctx, article); err != nil {
			return nil, "", fmt.Errorf("failed to republish article %s: %w", id, err)
		}

		return article, "article republished to cache", nil
	}

	if err := s.advanceAndPersist(ctx, article); err != nil {
		return nil, "", err
	}

	return article, "advanced one processing phase", nil
}

// ExtractText runs the scrape step against the live page for inspection,
// without touching the stored article.
func (s *enrichmentService) ExtractText(ctx context.Context, id string, debug bool) (string, string, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("failed to load article %s: %w", id, err)
	}

	if article == nil {
		return "", "", ErrArticleNotFound
	}

	if article.Link == "" {
		return "", "", fmt.Errorf("article %s has no link", id)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.HTTP.ArticleFetchTimeout)
	defer cancel()

	content, err := s.fetcher.Fetch(fetchCtx, article.Link, debug)
	if err != nil {
		return article.Link, "", err
	}

	return article.Link, content, nil
}

// advanceAndPersist runs one phase for the article, persists the resulting
// field changes, publishes the record to the cache when it just became fully
// processed, and maintains the crash-recovery checkpoint around the work.
func (s *enrichmentService) advanceAndPersist(ctx context.Context, article *models.Article) error {
	if err := s.checkpointRepo.SetCurrent(ctx, article.ID); err != nil {
		// The checkpoint is advisory; losing one marker only costs forensic
		// detail after a crash.
		s.logger.WarnContext(ctx, "failed to set checkpoint",
			"article_id", article.ID, "error", err)
	}

	fields, phase := s.advanceOnePhase(ctx, article)

	if err := s.articleRepo.Update(ctx, article.ID, fields); err != nil {
		return fmt.Errorf("failed to persist %s phase for article %s: %w", phase, article.ID, err)
	}

	if article.FullyProcessed() {
		if err := s.cacheRepo.PutArticle(ctx, article); err != nil {
			s.logger.WarnContext(ctx, "failed to publish processed article to cache",
				"article_id", article.ID, "error", err)
		}
	}

	if err := s.checkpointRepo.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear checkpoint",
			"article_id", article.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "article advanced",
		"article_id", article.ID,
		"phase", phase,
		"needs_sentiment", article.NeedsSentiment,
		"needs_summary", article.NeedsSummary)

	return nil
}

// advanceOnePhase mutates the article in place through exactly one phase and
// returns the changed columns. Phase order: sentiment, then the summary
// pipeline (scrape, then summarize). processed_at is always touched so a
// stuck article is visible in the data.
func (s *enrichmentService) advanceOnePhase(ctx context.Context, article *models.Article) (map[string]any, string) {
	now := time.Now().UnixMilli()
	article.ProcessedAt = now
	fields := map[string]any{"processed_at": now}

	switch {
	case article.NeedsSentiment:
		s.runSentimentPhase(ctx, article, fields)
		return fields, "sentiment"

	case article.NeedsSummary && article.Link == "":
		// Nothing to scrape or summarize without a link.
		article.NeedsSummary = false
		article.SummaryError = "no_link"
		fields["needs_summary"] = false
		fields["summary_error"] = article.SummaryError
		return fields, "summary"

	case article.NeedsSummary && article.ExtractedContent == "":
		s.runScrapePhase(ctx, article, fields)
		return fields, "scrape"

	case article.NeedsSummary:
		s.runSummarizePhase(ctx, article, fields)
		return fields, "summarize"
	}

	return fields, "none"
}

func (s *enrichmentService) runSentimentPhase(ctx context.Context, article *models.Article, fields map[string]any) {
	prompt := "Title: " + article.Title
	if article.Description != "" {
		prompt += "\nDescription: " + article.Description
	}

	response, err := s.inference.Run(ctx, []driver.Message{
		{Role: "system", Content: sentimentSystemPrompt},
		{Role: "user", Content: prompt},
	}, s.cfg.Inference.SentimentMaxTokens)
	if err != nil {
		// Keep needs_sentiment set; the next tick tries again.
		s.logger.WarnContext(ctx, "sentiment classification failed",
			"article_id", article.ID, "error", err)
		return
	}

	article.Sentiment = parseSentimentResponse(response)
	article.NeedsSentiment = false
	fields["sentiment"] = article.Sentiment
	fields["needs_sentiment"] = false
}

// runScrapePhase fetches the article webpage and stores the extracted text.
// content_timeout counts failed attempts against the shared budget, so a
// clean scrape leaves it untouched; exhausting the budget ends the summary
// pipeline with the counter reset to zero so the article stops sorting as
// mid-scrape.
func (s *enrichmentService) runScrapePhase(ctx context.Context, article *models.Article, fields map[string]any) {
	attempt := article.ContentTimeout + 1
	maxAttempts := s.cfg.Processor.MaxContentFetchAttempts

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.HTTP.ArticleFetchTimeout)
	defer cancel()

	content, err := s.fetcher.Fetch(fetchCtx, article.Link, false)

	switch {
	case errors.Is(err, ErrBadStatus):
		s.failSummaryAttempt(article, fields, attempt,
			fmt.Sprintf("fetch_failed (%d/%d)", attempt, maxAttempts))

	case err != nil:
		s.failSummaryAttempt(article, fields, attempt,
			fmt.Sprintf("fetch_error: %v (%d/%d)", err, attempt, maxAttempts))

	case content == "":
		// The page answered but held no usable text; summarizing it would
		// only reject it for being too short.
		s.terminateSummary(article, fields, "content_mismatch")

	default:
		article.ExtractedContent = content
		article.SummaryError = fmt.Sprintf("scraping_complete (%d/%d)", attempt, maxAttempts)
		fields["extracted_content"] = content
		fields["summary_error"] = article.SummaryError
	}
}

func (s *enrichmentService) runSummarizePhase(ctx context.Context, article *models.Article, fields map[string]any) {
	text := cleanExtractedContent(article.ExtractedContent)
	if len(text) < minContentChars {
		s.terminateSummary(article, fields, "content_mismatch")
		return
	}

	response, err := s.inference.Run(ctx, []driver.Message{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: text},
	}, s.cfg.Inference.SummaryMaxTokens)

	attempt := article.ContentTimeout + 1
	maxAttempts := s.cfg.Processor.MaxContentFetchAttempts

	if err != nil {
		s.failSummaryAttempt(article, fields, attempt,
			fmt.Sprintf("ai_error: %v (%d/%d)", err, attempt, maxAttempts))
		return
	}

	summary, mismatch := parseSummaryResponse(response)
	if mismatch {
		s.terminateSummary(article, fields, "content_mismatch")
		return
	}

	if len(summary) <= minSummaryChars {
		// A degenerate summary means the model had nothing real to work
		// with; treat it like an empty answer rather than burning retries on
		// the same content.
		s.terminateSummary(article, fields, "content_mismatch")
		return
	}

	article.AISummary = summary
	article.NeedsSummary = false
	article.SummaryError = ""
	article.ContentTimeout = 0
	article.ExtractedContent = ""
	fields["ai_summary"] = summary
	fields["needs_summary"] = false
	fields["summary_error"] = ""
	fields["content_timeout"] = 0
	fields["extracted_content"] = ""
}

// failSummaryAttempt records one failed attempt. When the budget is spent the
// summary pipeline ends with the failure note kept for diagnosis.
func (s *enrichmentService) failSummaryAttempt(article *models.Article, fields map[string]any, attempt int, note string) {
	if attempt >= s.cfg.Processor.MaxContentFetchAttempts {
		s.terminateSummary(article, fields, note)
		return
	}

	article.ContentTimeout = attempt
	article.SummaryError = note
	fields["content_timeout"] = attempt
	fields["summary_error"] = note
}

// terminateSummary ends the summary pipeline for good: the flag comes down,
// the attempt counter resets so the article stops sorting as mid-scrape, and
// any captured page text is released.
func (s *enrichmentService) terminateSummary(article *models.Article, fields map[string]any, note string) {
	article.NeedsSummary = false
	article.ContentTimeout = 0
	article.SummaryError = note
	article.ExtractedContent = ""
	fields["needs_summary"] = false
	fields["content_timeout"] = 0
	fields["summary_error"] = note
	fields["extracted_content"] = ""
}
