package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/jobs"
)

// EntryStatus is the combined entry and job view.
type EntryStatus struct {
	Entry entries.View `json:"entry"`
	Job   *jobs.Job    `json:"job,omitempty"`
}

// EntryListResponse lists entries of an owner.
type EntryListResponse struct {
	Items []entries.View `json:"items"`
}

// EntriesHandler exposes entry status and the manual completion retry.
type EntriesHandler struct {
	entries    *entries.Service
	dispatcher *jobs.Dispatcher
	processor  *completion.Processor
	logger     *slog.Logger
}

// NewEntriesHandler creates the entries handler.
func NewEntriesHandler(log *slog.Logger, entryService *entries.Service, dispatcher *jobs.Dispatcher, processor *completion.Processor) *EntriesHandler {
	return &EntriesHandler{
		entries:    entryService,
		dispatcher: dispatcher,
		processor:  processor,
		logger:     log.With(slog.String("handler", "entries")),
	}
}

func (h *EntriesHandler) Register(e *echo.Echo) {
	group := e.Group("/entries")
	group.GET("", h.List)
	group.GET("/:id/status", h.Status)
	group.POST("/:id/complete", h.Complete)
}

// Status godoc
// @Summary Entry status
// @Description Returns the entry with its processing job, if any
// @Tags entries
// @Param id path string true "Entry ID"
// @Success 200 {object} EntryStatus
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /entries/{id}/status [get]
func (h *EntriesHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	entry, err := h.entries.Get(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	resp := EntryStatus{Entry: entry.ToView()}
	if jobID := entry.JobID(); jobID != "" {
		job, err := h.dispatcher.Get(ctx, jobID)
		switch {
		case err == nil:
			resp.Job = &job
		case errors.Is(err, jobs.ErrJobNotFound):
			h.logger.Warn("entry references missing job", slog.String("entry_id", entry.ID), slog.String("job_id", jobID))
		default:
			return httpError(err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary List entries
// @Description Lists the newest entries of an owner
// @Tags entries
// @Param owner query string true "Owner handle"
// @Param limit query int false "Maximum items (default 50, max 200)"
// @Success 200 {object} EntryListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /entries [get]
func (h *EntriesHandler) List(c echo.Context) error {
	owner := strings.TrimSpace(c.QueryParam("owner"))
	if err := entries.ValidateHandle(owner); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}
	items, err := h.entries.ListByOwner(c.Request().Context(), owner, limit)
	if err != nil {
		return httpError(err)
	}
	views := make([]entries.View, 0, len(items))
	for _, item := range items {
		views = append(views, item.ToView())
	}
	return c.JSON(http.StatusOK, EntryListResponse{Items: views})
}

// Complete godoc
// @Summary Retry completion
// @Description Re-runs the completion pipeline with the local file recorded on the entry
// @Tags entries
// @Param id path string true "Entry ID"
// @Success 200 {object} completion.Outcome
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /entries/{id}/complete [post]
func (h *EntriesHandler) Complete(c echo.Context) error {
	outcome, err := h.processor.Process(c.Request().Context(), c.Param("id"), "")
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}
