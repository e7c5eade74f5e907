package echo

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammadpnp/crm-import/internal/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("health check failed")
		return c.JSON(http.StatusServiceUnavailable, apiResponse{Error: &errorBody{
			Code:    "store_unavailable",
			Message: "database unreachable",
		}})
	}
	return c.JSON(http.StatusOK, apiResponse{Data: map[string]string{"status": "ok"}})
}
