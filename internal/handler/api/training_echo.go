package api

import (
	"errors"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	"CryptoRNN/internal/usecase"
	"CryptoRNN/pkg/cache"
	xhttp "CryptoRNN/pkg/http"
	xlogger "CryptoRNN/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrainingEchoHandler exposes the state of the current training run.
type TrainingEchoHandler struct {
	logger   *xlogger.Logger
	status   *usecase.StatusTracker
	registry domrepo.RunRegistry
}

func NewTrainingEchoHandler(logger *xlogger.Logger, status *usecase.StatusTracker, registry domrepo.RunRegistry) *TrainingEchoHandler {
	return &TrainingEchoHandler{logger: logger, status: status, registry: registry}
}

func (h *TrainingEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/training")
	g.GET("/status", h.Status)
	g.GET("/history", h.History)
	g.GET("/best", h.Best)
}

func (h *TrainingEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *TrainingEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.Snapshot())
}

func (h *TrainingEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.status.History(req.Limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Best returns the best checkpoint recorded for the current run.
func (h *TrainingEchoHandler) Best(c echo.Context) error {
	snap := h.status.Snapshot()
	if snap.Run == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no training run yet"))
	}
	rec, err := h.registry.Best(c.Request().Context(), snap.Run.Name)
	if errors.Is(err, cache.ErrCacheMiss) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("run %s has no checkpoint yet", snap.Run.Name))
	}
	if err != nil {
		h.logger.Error("best checkpoint lookup failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("best checkpoint lookup failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, rec)
}
