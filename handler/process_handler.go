package handler

import (
	"errors"
	"net/http"

	"news-enricher/service"

	"github.com/labstack/echo/v4"
)

// ProcessHandler serves the on-demand enrichment endpoint.
type ProcessHandler struct {
	enrichment service.EnrichmentService
}

func NewProcessHandler(enrichment service.EnrichmentService) *ProcessHandler {
	return &ProcessHandler{enrichment: enrichment}
}

type processResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Article any    `json:"article,omitempty"`
}

type debugExtractResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
	Content string `json:"content"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handle serves /process. Query parameters:
//
//	articleId  required, the article to advance
//	force      re-publish an already-processed article to the cache
//	text       refetch the page and return its extracted text instead of
//	           advancing a phase; text=debug adds structural markers
func (h *ProcessHandler) Handle(c echo.Context) error {
	c.Response().Header().Set("Access-Control-Allow-Origin", "*")

	if c.Request().Method != http.MethodGet {
		return c.JSON(http.StatusMethodNotAllowed,
			errorResponse{Error: "method not allowed, use GET"})
	}

	articleID := c.QueryParam("articleId")
	if articleID == "" {
		return c.JSON(http.StatusBadRequest,
			errorResponse{Error: "articleId query parameter is required"})
	}

	ctx := c.Request().Context()

	if c.QueryParams().Has("text") {
		debug := c.QueryParam("text") == "debug"

		link, content, err := h.enrichment.ExtractText(ctx, articleID, debug)
		if err != nil {
			if errors.Is(err, service.ErrArticleNotFound) {
				return c.JSON(http.StatusNotFound,
					errorResponse{Error: "article not found"})
			}

			return c.JSON(http.StatusInternalServerError,
				errorResponse{Error: err.Error()})
		}

		return c.JSON(http.StatusOK, debugExtractResponse{
			Success: true,
			Link:    link,
			Content: content,
		})
	}

	force := c.QueryParam("force") == "true"

	article, message, err := h.enrichment.ProcessArticle(ctx, articleID, force)
	if err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			return c.JSON(http.StatusNotFound,
				errorResponse{Error: "article not found"})
		}

		return c.JSON(http.StatusInternalServerError,
			errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, processResponse{
		Success: true,
		Message: message,
		Article: article,
	})
}
