package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/intake"
)

// UploadsHandler starts uploads for both intake flows and finalizes upload-first transfers.
type UploadsHandler struct {
	coordinator *intake.Coordinator
	finalizer   *intake.Finalizer
	logger      *slog.Logger
}

// MetadataFirstRequest starts an upload whose metadata is known up front.
type MetadataFirstRequest struct {
	Owner string `json:"owner"`
	intake.DeclaredMetadata
}

// UploadFirstRequest starts an upload whose metadata follows after the transfer.
type UploadFirstRequest struct {
	Owner            string  `json:"owner"`
	SizeBytes        int64   `json:"size_bytes"`
	DurationSeconds  float64 `json:"duration_seconds"`
	OriginalFilename string  `json:"original_filename"`
}

// NewUploadsHandler creates the uploads handler.
func NewUploadsHandler(log *slog.Logger, coordinator *intake.Coordinator, finalizer *intake.Finalizer) *UploadsHandler {
	return &UploadsHandler{
		coordinator: coordinator,
		finalizer:   finalizer,
		logger:      log.With(slog.String("handler", "uploads")),
	}
}

func (h *UploadsHandler) Register(e *echo.Echo) {
	group := e.Group("/uploads")
	group.POST("/metadata-first", h.BeginMetadataFirst)
	group.POST("/upload-first", h.BeginUploadFirst)
	group.POST("/:token/finalize", h.Finalize)
}

// BeginMetadataFirst godoc
// @Summary Start a metadata-first upload
// @Description Validates the declared metadata, creates the entry and returns the transfer target
// @Tags uploads
// @Param payload body MetadataFirstRequest true "Declared metadata"
// @Success 201 {object} intake.MetadataFirstTicket
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /uploads/metadata-first [post]
func (h *UploadsHandler) BeginMetadataFirst(c echo.Context) error {
	var req MetadataFirstRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.coordinator.BeginMetadataFirst(c.Request().Context(), req.Owner, req.DeclaredMetadata)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// BeginUploadFirst godoc
// @Summary Start an upload-first transfer
// @Description Validates the declared file and opens a pending transfer that expires unless finalized
// @Tags uploads
// @Param payload body UploadFirstRequest true "Declared file"
// @Success 201 {object} intake.UploadFirstTicket
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /uploads/upload-first [post]
func (h *UploadsHandler) BeginUploadFirst(c echo.Context) error {
	var req UploadFirstRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.coordinator.BeginUploadFirst(c.Request().Context(), req.Owner, req.SizeBytes, req.DurationSeconds, req.OriginalFilename)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// Finalize godoc
// @Summary Finalize an upload-first transfer
// @Description Creates the entry from the completed transfer, stores the file and dispatches the processing job
// @Tags uploads
// @Param token path string true "Transfer token"
// @Param payload body intake.UserMetadata true "User metadata"
// @Success 200 {object} intake.FinalizeResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} FinalizeErrorResponse
// @Failure 502 {object} FinalizeErrorResponse
// @Router /uploads/{token}/finalize [post]
func (h *UploadsHandler) Finalize(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	var req intake.UserMetadata
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.finalizer.Finalize(c.Request().Context(), token, req)
	if err != nil {
		if res.EntryID == "" {
			return httpError(err)
		}
		h.logger.Warn("finalize did not complete entry",
			slog.String("token", token),
			slog.String("entry_id", res.EntryID),
			slog.Any("error", err),
		)
		status := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(httpError(err), &he) {
			status = he.Code
		}
		return c.JSON(status, FinalizeErrorResponse{Message: err.Error(), EntryID: res.EntryID})
	}
	return c.JSON(http.StatusOK, res)
}
