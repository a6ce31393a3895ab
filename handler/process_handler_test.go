package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"news-enricher/models"
	"news-enricher/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnrichmentService struct {
	article     *models.Article
	message     string
	processErr  error
	debugLink   string
	debugText   string
	debugErr    error
	debugSeen   bool
	forceSeen   bool
	lastArticle string
}

func (f *fakeEnrichmentService) RunProcessorTick(ctx context.Context) (*service.ProcessorResult, error) {
	return &service.ProcessorResult{}, nil
}

func (f *fakeEnrichmentService) ProcessArticle(ctx context.Context, id string, force bool) (*models.Article, string, error) {
	f.lastArticle = id
	f.forceSeen = force

	return f.article, f.message, f.processErr
}

func (f *fakeEnrichmentService) ExtractText(ctx context.Context, id string, debug bool) (string, string, error) {
	f.lastArticle = id
	f.debugSeen = debug

	return f.debugLink, f.debugText, f.debugErr
}

func doRequest(t *testing.T, svc service.EnrichmentService, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, NewProcessHandler(svc).Handle(c))

	return rec
}

func TestProcessHandler(t *testing.T) {
	t.Run("should reject non-GET methods", func(t *testing.T) {
		rec := doRequest(t, &fakeEnrichmentService{}, http.MethodPost, "/process?articleId=a1")

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Contains(t, rec.Body.String(), "method not allowed")
	})

	t.Run("should require articleId", func(t *testing.T) {
		rec := doRequest(t, &fakeEnrichmentService{}, http.MethodGet, "/process")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "articleId")
	})

	t.Run("should return 404 for an unknown article", func(t *testing.T) {
		svc := &fakeEnrichmentService{processErr: service.ErrArticleNotFound}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=missing")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should return the advanced article", func(t *testing.T) {
		svc := &fakeEnrichmentService{
			article: &models.Article{ID: "a1", Sentiment: models.SentimentPositive},
			message: "advanced one processing phase",
		}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=a1")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a1", svc.lastArticle)
		assert.False(t, svc.forceSeen)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "advanced one processing phase", resp["message"])
	})

	t.Run("should pass force through", func(t *testing.T) {
		svc := &fakeEnrichmentService{article: &models.Article{ID: "a1"}}

		doRequest(t, svc, http.MethodGet, "/process?articleId=a1&force=true")

		assert.True(t, svc.forceSeen)
	})

	t.Run("should serve extracted text for the text parameter", func(t *testing.T) {
		svc := &fakeEnrichmentService{
			debugLink: "https://x/a1",
			debugText: "Story",
		}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=a1&text")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, svc.debugSeen)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "https://x/a1", resp["link"])
		assert.Equal(t, "Story", resp["content"])
	})

	t.Run("should enable markers for text=debug", func(t *testing.T) {
		svc := &fakeEnrichmentService{
			debugLink: "https://x/a1",
			debugText: "[p](p)Story",
		}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=a1&text=debug")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.debugSeen)
	})

	t.Run("should return 500 on a processing failure", func(t *testing.T) {
		svc := &fakeEnrichmentService{processErr: errors.New("boom")}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=a1")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("should allow cross-origin reads", func(t *testing.T) {
		svc := &fakeEnrichmentService{article: &models.Article{ID: "a1"}}

		rec := doRequest(t, svc, http.MethodGet, "/process?articleId=a1")

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
