package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hivecast/ingestd/internal/completion"
)

// tusd v2 hook types this service acts on.
const (
	hookPreCreate  = "pre-create"
	hookPostFinish = "post-finish"
)

// TusHookRequest is the body tusd sends to an HTTP hook endpoint.
type TusHookRequest struct {
	Type  string       `json:"Type"`
	Event TusHookEvent `json:"Event"`
}

// TusHookEvent carries the upload the hook refers to.
type TusHookEvent struct {
	Upload TusUpload `json:"Upload"`
}

// TusUpload describes an upload known to tusd.
type TusUpload struct {
	ID       string            `json:"ID"`
	Size     int64             `json:"Size"`
	Offset   int64             `json:"Offset"`
	MetaData map[string]string `json:"MetaData"`
	Storage  map[string]string `json:"Storage"`
}

// TusHookResponse is the body tusd expects back. Empty fields keep tusd defaults.
type TusHookResponse struct {
	RejectUpload bool `json:"RejectUpload,omitempty"`
}

// HooksHandler receives transfer-completion notifications from tusd.
type HooksHandler struct {
	router    *completion.Router
	uploadDir string
	logger    *slog.Logger
}

// NewHooksHandler creates the tus hook handler. uploadDir resolves uploads whose
// hook carries no storage path.
func NewHooksHandler(log *slog.Logger, router *completion.Router, uploadDir string) *HooksHandler {
	return &HooksHandler{
		router:    router,
		uploadDir: uploadDir,
		logger:    log.With(slog.String("handler", "hooks")),
	}
}

func (h *HooksHandler) Register(e *echo.Echo) {
	e.POST("/hooks/tus", h.Tus)
}

// Tus godoc
// @Summary tusd HTTP hook
// @Description Handles post-finish notifications for both intake flows; pre-create is acknowledged
// @Tags hooks
// @Param payload body TusHookRequest true "tusd hook request"
// @Success 200 {object} TusHookResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /hooks/tus [post]
func (h *HooksHandler) Tus(c echo.Context) error {
	var req TusHookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch req.Type {
	case hookPostFinish:
	case hookPreCreate:
		return c.JSON(http.StatusOK, TusHookResponse{})
	default:
		h.logger.Debug("ignoring tus hook", slog.String("type", req.Type))
		return c.JSON(http.StatusOK, TusHookResponse{})
	}

	upload := req.Event.Upload
	n := completion.Notification{
		TransferID: upload.ID,
		LocalPath:  h.localPath(upload),
		SizeBytes:  upload.Size,
		Metadata:   upload.MetaData,
	}
	res, err := h.router.Route(c.Request().Context(), n)
	if err != nil {
		h.logger.Error("tus post-finish failed",
			slog.String("upload_id", upload.ID),
			slog.Any("error", err),
		)
		return httpError(err)
	}
	h.logger.Info("tus post-finish handled",
		slog.String("upload_id", upload.ID),
		slog.String("kind", string(res.Kind)),
	)
	return c.JSON(http.StatusOK, res)
}

func (h *HooksHandler) localPath(u TusUpload) string {
	if p := strings.TrimSpace(u.Storage["Path"]); p != "" {
		return p
	}
	if h.uploadDir == "" || u.ID == "" || strings.ContainsAny(u.ID, `/\`) {
		return ""
	}
	return filepath.Join(h.uploadDir, u.ID)
}
