package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/eviction"
	"github.com/hivecast/ingestd/internal/schedule"
)

// ScheduleHandler exposes the maintenance tasks and the on-demand eviction sweep.
type ScheduleHandler struct {
	service  *schedule.Service
	eviction *eviction.Scheduler
	logger   *slog.Logger
}

// NewScheduleHandler creates the admin schedule handler.
func NewScheduleHandler(log *slog.Logger, service *schedule.Service, sweeper *eviction.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{
		service:  service,
		eviction: sweeper,
		logger:   log.With(slog.String("handler", "schedule")),
	}
}

func (h *ScheduleHandler) Register(e *echo.Echo) {
	group := e.Group("/admin")
	group.GET("/schedules", h.List)
	group.POST("/schedules/:name/run", h.Trigger)
	group.POST("/eviction/run", h.RunEviction)
}

// List godoc
// @Summary List maintenance tasks
// @Tags admin
// @Success 200 {object} schedule.ListResponse
// @Router /admin/schedules [get]
func (h *ScheduleHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, schedule.ListResponse{Items: h.service.List()})
}

// Trigger godoc
// @Summary Run a maintenance task now
// @Tags admin
// @Param name path string true "Task name"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/schedules/{name}/run [post]
func (h *ScheduleHandler) Trigger(c echo.Context) error {
	name := c.Param("name")
	if err := h.service.Trigger(c.Request().Context(), name); err != nil {
		return httpError(err)
	}
	h.logger.Info("task triggered", slog.String("task", name))
	return c.NoContent(http.StatusNoContent)
}

// RunEviction godoc
// @Summary Run the eviction sweep now
// @Description Unpins fallback content of published entries past the retention window
// @Tags admin
// @Success 200 {object} eviction.Report
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/eviction/run [post]
func (h *ScheduleHandler) RunEviction(c echo.Context) error {
	report, err := h.eviction.Run(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}
