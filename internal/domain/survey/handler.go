package survey

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/pretest/internal/platform/middleware"
	"github.com/ehr/pretest/pkg/pagination"
)

type Handler struct {
	rec *Recorder
}

func NewHandler(rec *Recorder) *Handler {
	return &Handler{rec: rec}
}

// RegisterRoutes mounts the study-staff read endpoints on the admin group.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/responses", h.ListResponses)
	admin.GET("/participants/:participant/demographics", h.GetDemographics)
}

// RegisterPublicRoutes mounts the questionnaire definition.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.GET("/pretest/form", h.GetForm, middleware.ETag())
}

func (h *Handler) GetForm(c echo.Context) error {
	return c.JSON(http.StatusOK, Definition())
}

func (h *Handler) ListResponses(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.rec.ListResponses(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		h.rec.logger.Error().Err(err).Msg("listing questionnaire responses failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list responses")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).
		WithLinks(c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) GetDemographics(c echo.Context) error {
	participant := c.Param("participant")
	items, err := h.rec.Demographics(c.Request().Context(), participant)
	if err != nil {
		h.rec.logger.Error().Err(err).Str("participant_number", participant).Msg("reading demographic surveys failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read demographic surveys")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no demographic survey for participant")
	}
	return c.JSON(http.StatusOK, items)
}
