package consent

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/platform/auth"
	"github.com/schoolvax/schoolvax/pkg/pagination"
)

var timeNow = time.Now

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "nurse", "admin_staff")

	g := api.Group("", role)
	g.POST("/patients/:id/consents", h.RecordConsent)
	g.GET("/patients/:id/consents", h.ListResponses)
	g.GET("/patients/:id/consent-decision", h.CurrentDecision)
	g.POST("/consents/:id/withdraw", h.WithdrawConsent)
}

func (h *Handler) RecordConsent(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var res Response
	if err := c.Bind(&res); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res.PatientID = patientID
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" && res.RecordedBy == nil {
		res.RecordedBy = &uid
	}

	decision, err := h.svc.RecordConsent(c.Request().Context(), &res)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"response": res,
		"decision": decision,
	})
}

func (h *Handler) WithdrawConsent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	decision, err := h.svc.WithdrawConsent(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "consent response not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"decision": decision})
}

func (h *Handler) ListResponses(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListResponses(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CurrentDecision(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	prog := programme.Type(c.QueryParam("programme"))
	if !prog.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown programme")
	}
	year := programme.AcademicYear(c.QueryParam("academic_year"))
	if year == "" {
		year = programme.AcademicYearForDate(timeNow())
	}
	if !year.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed academic year")
	}

	decision, err := h.svc.CurrentDecision(c.Request().Context(), patientID, prog, year)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, decision)
}
