package intake

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/pretest/internal/domain/enrollment"
	"github.com/ehr/pretest/internal/domain/survey"
	"github.com/ehr/pretest/internal/platform/middleware"
)

// HeaderRecordStatus is set to "degraded" when a secondary write failed.
const HeaderRecordStatus = "X-Record-Status"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/pretest/submissions", h.CreateSubmission)
}

// ErrorResponse is the body of every failed submission.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind,omitempty"`
	Fields []survey.FieldError `json:"fields,omitempty"`
}

func (h *Handler) CreateSubmission(c echo.Context) error {
	var a survey.Answers
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cleanFreeText(&a)

	sub, err := h.svc.Submit(c.Request().Context(), &a)
	if err != nil {
		return h.writeError(c, err)
	}

	if sub.Record.Degraded() {
		c.Response().Header().Set(HeaderRecordStatus, "degraded")
	} else {
		c.Response().Header().Set(HeaderRecordStatus, "ok")
	}
	return c.JSON(http.StatusCreated, sub.SuccessView())
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var ve *survey.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Please complete all required fields.",
			Fields: ve.Fields,
		})
	}

	var ae *enrollment.AllocationError
	if errors.As(err, &ae) {
		status := http.StatusServiceUnavailable
		if ae.Kind == enrollment.KindAllocationConflict {
			status = http.StatusConflict
		}
		return c.JSON(status, ErrorResponse{Error: ae.UserMessage(), Kind: string(ae.Kind)})
	}

	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "An unexpected error occurred. Please try again.",
	})
}

// cleanFreeText strips control characters from the answers that are stored
// verbatim.
func cleanFreeText(a *survey.Answers) {
	for _, f := range []*string{
		&a.EducationalOther,
		&a.WorkingUnitOther,
		&a.NightShiftsOther,
		&a.ResidenceOther,
		&a.AdditionalComments,
	} {
		*f = middleware.SanitizeString(*f)
	}
}
