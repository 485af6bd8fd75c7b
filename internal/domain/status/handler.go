package status

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "nurse", "admin_staff", "prescriber"))
	staff.GET("/patients/:id/status", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	t := programme.Type(c.QueryParam("programme"))
	if !t.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown programme")
	}
	year := programme.AcademicYear(c.QueryParam("academic_year"))
	if !year.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed academic year")
	}

	var sessionID *uuid.UUID
	if raw := c.QueryParam("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
		}
		sessionID = &id
	}

	bundle, gate, err := h.svc.StatusFor(c.Request().Context(), patientID, t, year, sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": bundle,
		"gate":   gate,
	})
}
