package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"news-enricher/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIngestionTick(t *testing.T) {
	ctx := context.Background()

	t.Run("should ingest all pages on a cold start", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"a2", "Two"}, &fakeRaw{"a1", "One"}}, NextToken: "next"},
			{Articles: []any{&fakeRaw{"a0", "Zero"}}},
		}}
		repo := newFakeArticleRepo()
		cache := &fakeCacheRepo{}

		svc := NewIngestionService(p, repo, cache, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Fetched)
		assert.Equal(t, 3, result.Inserted)
		assert.Equal(t, []string{"", "next"}, p.fetched)

		require.Len(t, cache.putIndexes, 1)
		assert.Equal(t, []string{"a2", "a1", "a0"}, cache.putIndexes[0])
	})

	t.Run("should stop paginating after a page containing a known id", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"a3", "Three"}, &fakeRaw{"a2", "Two"}, &fakeRaw{"new", "New"}}, NextToken: "next"},
			{Articles: []any{&fakeRaw{"old", "Old"}}},
		}}
		repo := newFakeArticleRepo()
		cache := &fakeCacheRepo{index: []string{"a2", "a1"}}

		svc := NewIngestionService(p, repo, cache, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		// the page with the known id is still scanned to its end
		assert.Equal(t, 2, result.Inserted)
		assert.Equal(t, []string{""}, p.fetched)
		assert.Equal(t, []string{"a3", "new", "a2", "a1"}, cache.putIndexes[0])
	})

	t.Run("should respect the page budget", func(t *testing.T) {
		pages := make([]*provider.Page, 5)
		for i := range pages {
			pages[i] = &provider.Page{
				Articles:  []any{&fakeRaw{fmt.Sprintf("p%d", i), "T"}},
				NextToken: "next",
			}
		}

		p := &fakeProvider{pages: pages}
		cfg := testConfig()
		cfg.Producer.MaxPages = 2

		svc := NewIngestionService(p, newFakeArticleRepo(), &fakeCacheRepo{}, cfg, testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Len(t, p.fetched, 2)
		assert.Equal(t, 2, result.Inserted)
	})

	t.Run("should abort with no writes on a provider error", func(t *testing.T) {
		p := &fakeProvider{fetchErr: errors.New("rate limited")}
		repo := newFakeArticleRepo()
		cache := &fakeCacheRepo{index: []string{"a1"}}

		svc := NewIngestionService(p, repo, cache, testConfig(), testLogger())

		_, err := svc.RunIngestionTick(ctx)
		require.Error(t, err)

		assert.Empty(t, repo.inserted)
		assert.Empty(t, cache.putIndexes)
	})

	t.Run("should skip articles without a derivable id", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"", "No id"}, &fakeRaw{"a1", "One"}}},
		}}
		repo := newFakeArticleRepo()
		cache := &fakeCacheRepo{}

		svc := NewIngestionService(p, repo, cache, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Inserted)
		assert.Equal(t, []string{"a1"}, cache.putIndexes[0])
	})

	t.Run("should skip unnormalizable articles", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"bad", ""}, &fakeRaw{"a1", "One"}}},
		}}
		repo := newFakeArticleRepo()

		svc := NewIngestionService(p, repo, &fakeCacheRepo{}, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Inserted)
	})

	t.Run("should dedup repeated ids within one run", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"a1", "One"}, &fakeRaw{"a1", "One again"}}},
		}}
		repo := newFakeArticleRepo()

		svc := NewIngestionService(p, repo, &fakeCacheRepo{}, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Inserted)
	})

	t.Run("should truncate the index to the retention cap", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"n1", "T"}, &fakeRaw{"n2", "T"}}},
		}}
		cfg := testConfig()
		cfg.Producer.MaxStoredArticles = 3
		cache := &fakeCacheRepo{index: []string{"o1", "o2", "o3"}}

		svc := NewIngestionService(p, newFakeArticleRepo(), cache, cfg, testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"n1", "n2", "o1"}, cache.putIndexes[0])
		assert.Equal(t, 3, result.IndexSize)
	})

	t.Run("should trim rows that fell off the index when enabled", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"n1", "T"}}},
		}}
		cfg := testConfig()
		cfg.Producer.MaxStoredArticles = 2
		cfg.Producer.DeleteOldArticles = true

		repo := newFakeArticleRepo()
		repo.allIDs = []string{"n1", "o1", "o2"}
		cache := &fakeCacheRepo{index: []string{"o1", "o2"}}

		svc := NewIngestionService(p, repo, cache, cfg, testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		require.Len(t, repo.deleted, 1)
		assert.Equal(t, []string{"o2"}, repo.deleted[0])
		assert.Equal(t, [][]string{{"o2"}}, cache.deleted)
		assert.Equal(t, 1, result.Deleted)
	})

	t.Run("should not trim when disabled", func(t *testing.T) {
		p := &fakeProvider{pages: []*provider.Page{
			{Articles: []any{&fakeRaw{"n1", "T"}}},
		}}
		repo := newFakeArticleRepo()
		repo.allIDs = []string{"n1", "stale"}

		svc := NewIngestionService(p, repo, &fakeCacheRepo{}, testConfig(), testLogger())

		result, err := svc.RunIngestionTick(ctx)
		require.NoError(t, err)

		assert.Empty(t, repo.deleted)
		assert.Zero(t, result.Deleted)
	})
}
