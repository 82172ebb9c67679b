package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/eviction"
	"github.com/hivecast/ingestd/internal/intake"
	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/schedule"
	"github.com/hivecast/ingestd/internal/storage"
	"github.com/hivecast/ingestd/internal/transfers"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// FinalizeErrorResponse is returned when finalize fails after the entry exists,
// so the client can follow it via /entries/{id}.
type FinalizeErrorResponse struct {
	Message string `json:"message"`
	EntryID string `json:"entry_id"`
}

// httpError maps a service error to the HTTP status the API reports for it.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	var (
		validation *intake.ValidationError
		upload     *storage.UploadFailedError
		httpErr    *echo.HTTPError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &validation),
		errors.Is(err, completion.ErrMetadataMismatch),
		errors.Is(err, completion.ErrUnknownNotification):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entries.ErrEntryNotFound),
		errors.Is(err, transfers.ErrTransferNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, schedule.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, transfers.ErrUploadNotReady),
		errors.Is(err, transfers.ErrAlreadyFinalized),
		errors.Is(err, jobs.ErrJobExists),
		errors.Is(err, jobs.ErrJobNotRetryable),
		errors.Is(err, jobs.ErrJobNotCancellable),
		errors.Is(err, completion.ErrEntryFailed),
		errors.Is(err, eviction.ErrSweepInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &upload):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
