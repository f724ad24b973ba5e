package enrollment

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	alloc *Allocator
}

func NewHandler(alloc *Allocator) *Handler {
	return &Handler{alloc: alloc}
}

// RegisterRoutes mounts the slot pool endpoints on the admin group. The
// caller is responsible for the group's auth middleware.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/slots/stats", h.GetStats)
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.alloc.Stats(c.Request().Context())
	if err != nil {
		h.alloc.logger.Error().Err(err).Msg("reading slot pool stats failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read slot pool stats")
	}
	return c.JSON(http.StatusOK, st)
}
