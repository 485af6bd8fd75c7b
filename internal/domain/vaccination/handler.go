package vaccination

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schoolvax/schoolvax/internal/platform/auth"
	"github.com/schoolvax/schoolvax/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole("admin", "nurse", "admin_staff")
	clinical := auth.RequireRole("admin", "nurse")

	read := api.Group("", staff)
	read.GET("/sessions/:id", h.GetSession)
	read.GET("/schools/:id/sessions", h.ListSessionsBySchool)
	read.GET("/patients/:id/vaccinations", h.ListByPatient)

	write := api.Group("", clinical)
	write.POST("/sessions", h.CreateSession)
	write.POST("/sessions/:id/vaccinations", h.RecordVaccination)
	write.PUT("/sessions/:id/default-batch", h.SetDefaultBatch)
	write.GET("/sessions/:id/default-batch", h.GetDefaultBatch)
	write.DELETE("/sessions/:id/default-batch", h.ClearDefaultBatch)
}

func (h *Handler) CreateSession(c echo.Context) error {
	var s Session
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSession(c.Request().Context(), &s); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ListSessionsBySchool(c echo.Context) error {
	schoolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid school id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSessionsBySchool(c.Request().Context(), schoolID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecordVaccination(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.SessionID = sessionID
	if rec.PerformedBy == "" {
		rec.PerformedBy = auth.UserIDFromContext(c.Request().Context())
	}

	err = h.svc.RecordVaccination(c.Request().Context(), &rec)
	switch {
	case errors.Is(err, ErrAlreadyVaccinated),
		errors.Is(err, ErrNotPermitted),
		errors.Is(err, ErrVariantNotPermitted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SetDefaultBatch(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	var b DefaultBatch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.SessionID = sessionID
	if b.UserID == "" {
		b.UserID = auth.UserIDFromContext(c.Request().Context())
	}
	if err := h.svc.SetDefaultBatch(c.Request().Context(), &b); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetDefaultBatch(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	b, err := h.svc.DefaultBatchFor(c.Request().Context(), userID, sessionID, c.QueryParam("vaccine"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no default batch set")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ClearDefaultBatch(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.ClearDefaultBatch(c.Request().Context(), userID, sessionID, c.QueryParam("vaccine")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
