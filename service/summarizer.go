package service

import (
	"html"
	"regexp"
	"strings"

	"news-enricher/models"
)

const (
	// minContentChars is the shortest cleaned page text worth summarizing.
	// Anything below this is a paywall stub, a consent page, or boilerplate.
	minContentChars = 100
	// minSummaryChars rejects degenerate model output.
	minSummaryChars = 20
)

const summarySystemPrompt = `You are an editor for a Bitcoin news service. ` +
	`Summarize the article text the user provides in 2-4 plain sentences. ` +
	`Respond in the form "SUMMARY: <your summary>". ` +
	`If the text is not a news article about Bitcoin or cryptocurrency ` +
	`(for example a consent page, an error page, or an unrelated article), ` +
	`respond with exactly "CONTENT_MISMATCH".`

var summaryMarkerPattern = regexp.MustCompile(`(?i)\bSUMMARY:\s*`)

// confirmationPrefixPatterns strip chat-style lead-ins the model sometimes
// emits despite the prompt.
var confirmationPrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(sure|certainly|of course|okay|here)[^.:\n]*[.:]\s*`),
	regexp.MustCompile(`(?i)^here is (a|the) summary[^:]*:\s*`),
}

// cleanExtractedContent decodes the stored raw text (the extractor keeps
// entities undecoded) and collapses whitespace runs.
func cleanExtractedContent(raw string) string {
	decoded := html.UnescapeString(raw)

	return strings.Join(strings.Fields(decoded), " ")
}

// parseSummaryResponse applies the model output contract: an explicit error
// or mismatch token means the page text was not the article; otherwise the
// summary is the text after the SUMMARY: marker, falling back to the whole
// response with confirmation chatter stripped.
func parseSummaryResponse(response string) (summary string, mismatch bool) {
	trimmed := strings.TrimSpace(response)

	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, "ERROR:") || strings.Contains(upper, "CONTENT_MISMATCH") {
		return "", true
	}

	if loc := summaryMarkerPattern.FindStringIndex(trimmed); loc != nil {
		return strings.TrimSpace(trimmed[loc[1]:]), false
	}

	for _, pattern := range confirmationPrefixPatterns {
		trimmed = pattern.ReplaceAllString(trimmed, "")
	}

	return strings.TrimSpace(trimmed), false
}

const sentimentSystemPrompt = `You classify the sentiment of Bitcoin news ` +
	`headlines toward Bitcoin. Reply with exactly one word: positive, ` +
	`negative, or neutral.`

// parseSentimentResponse folds free-form model output into the three-label
// enum. Unrecognizable output reads as neutral rather than failing the phase.
func parseSentimentResponse(response string) models.Sentiment {
	lower := strings.ToLower(response)

	switch {
	case strings.Contains(lower, "positive"):
		return models.SentimentPositive
	case strings.Contains(lower, "negative"):
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
