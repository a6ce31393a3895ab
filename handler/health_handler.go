package handler

import (
	"log/slog"
	"net/http"

	"news-enricher/models"
	"news-enricher/repository"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves liveness plus a backlog snapshot.
type HealthHandler struct {
	articleRepo    repository.ArticleRepository
	checkpointRepo repository.CheckpointRepository
	provider       string
	logger         *slog.Logger
}

func NewHealthHandler(
	articleRepo repository.ArticleRepository,
	checkpointRepo repository.CheckpointRepository,
	provider string,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		articleRepo:    articleRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		logger:         logger,
	}
}

type healthResponse struct {
	Status     string                  `json:"status"`
	Provider   string                  `json:"provider"`
	Stats      *models.ProcessingStats `json:"stats,omitempty"`
	Checkpoint *models.Checkpoint      `json:"checkpoint,omitempty"`
}

func (h *HealthHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	resp := healthResponse{Status: "ok", Provider: h.provider}

	// Stats are best effort; a storage hiccup should not flip liveness.
	stats, err := h.articleRepo.GetStats(ctx)
	if err != nil {
		h.logger.Warn("failed to load processing stats for health check", "error", err)
	} else {
		resp.Stats = stats
	}

	checkpoint, err := h.checkpointRepo.Get(ctx)
	if err != nil {
		h.logger.Warn("failed to load checkpoint for health check", "error", err)
	} else {
		resp.Checkpoint = checkpoint
	}

	return c.JSON(http.StatusOK, resp)
}
