package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/jobs"
)

// JobsHandler exposes processing jobs and their retry/cancel controls.
type JobsHandler struct {
	dispatcher *jobs.Dispatcher
	logger     *slog.Logger
}

// NewJobsHandler creates the jobs handler.
func NewJobsHandler(log *slog.Logger, dispatcher *jobs.Dispatcher) *JobsHandler {
	return &JobsHandler{
		dispatcher: dispatcher,
		logger:     log.With(slog.String("handler", "jobs")),
	}
}

func (h *JobsHandler) Register(e *echo.Echo) {
	group := e.Group("/jobs")
	group.GET("/:id", h.Get)
	group.POST("/:id/retry", h.Retry)
	group.POST("/:id/cancel", h.Cancel)
}

// Get godoc
// @Summary Get job
// @Tags jobs
// @Param id path string true "Job ID"
// @Success 200 {object} jobs.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *JobsHandler) Get(c echo.Context) error {
	job, err := h.dispatcher.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// Retry godoc
// @Summary Retry job
// @Description Requeues a failed or cancelled job with its progress reset
// @Tags jobs
// @Param id path string true "Job ID"
// @Success 200 {object} jobs.Job
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs/{id}/retry [post]
func (h *JobsHandler) Retry(c echo.Context) error {
	job, err := h.dispatcher.Retry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// Cancel godoc
// @Summary Cancel job
// @Tags jobs
// @Param id path string true "Job ID"
// @Success 200 {object} jobs.Job
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs/{id}/cancel [post]
func (h *JobsHandler) Cancel(c echo.Context) error {
	job, err := h.dispatcher.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, job)
}
