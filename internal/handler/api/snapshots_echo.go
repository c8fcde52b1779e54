package api

import (
	"errors"
	"time"

	models "CoinSink/internal/domain/models"
	domrepo "CoinSink/internal/domain/repository"
	"CoinSink/internal/usecase"
	xhttp "CoinSink/pkg/http"
	xlogger "CoinSink/pkg/logger"
	"CoinSink/pkg/util"

	"github.com/labstack/echo/v4"
)

// SnapshotsEchoHandler exposes the read facade over HTTP.
type SnapshotsEchoHandler struct {
	logger *xlogger.Logger
	query  *usecase.SnapshotQuery
	store  domrepo.SnapshotStore
}

func NewSnapshotsEchoHandler(logger *xlogger.Logger, query *usecase.SnapshotQuery, store domrepo.SnapshotStore) *SnapshotsEchoHandler {
	return &SnapshotsEchoHandler{logger: logger, query: query, store: store}
}

func (h *SnapshotsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/latest", h.Latest)
	g.GET("/history/:id", h.History)
	g.GET("/asof", h.AsOf)
	g.GET("/health", h.Health)
}

// Latest returns the newest stored row per entity.
func (h *SnapshotsEchoHandler) Latest(c echo.Context) error {
	rows, err := h.query.LatestSnapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("latest query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// History returns every stored row for one entity, oldest first.
func (h *SnapshotsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.query.History(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no rows for entity %q", req.ID).WithError(err))
		}
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// AsOf returns the newest row per entity at or before the given timestamp.
func (h *SnapshotsEchoHandler) AsOf(c echo.Context) error {
	req := &models.AsOfRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ts, ok := util.ParseTime(req.TS)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("ts must be RFC3339 or unix seconds"))
	}

	rows, err := h.query.AsOf(c.Request().Context(), ts)
	if err != nil {
		h.logger.Error("asof query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health reports storage reachability.
func (h *SnapshotsEchoHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("storage unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
