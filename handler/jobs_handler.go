package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JobsHandler exposes the scheduler state for operators.
type JobsHandler struct {
	scheduler *JobScheduler
}

func NewJobsHandler(scheduler *JobScheduler) *JobsHandler {
	return &JobsHandler{scheduler: scheduler}
}

func (h *JobsHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"jobs": h.scheduler.GetJobStatus(),
	})
}
