package matching

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
	staff := api.Group("", auth.RequireRole("admin", "nurse", "admin_staff"))
	staff.POST("/consent-forms", h.Submit)
	staff.GET("/consent-forms", h.List)
	staff.GET("/consent-forms/:id", h.Get)
	staff.POST("/consent-forms/:id/resolve", h.Resolve)
}

func (h *Handler) Submit(c echo.Context) error {
	var sub Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	orgID := auth.OrgIDFromContext(c.Request().Context())
	result, err := h.svc.SubmitConsentForm(c.Request().Context(), orgID, sub)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	form, err := h.svc.GetForm(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consent form not found")
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) List(c echo.Context) error {
	status := FormStatus(c.QueryParam("status"))
	if status == "" {
		status = FormPendingReview
	}
	pg := pagination.FromContext(c)
	orgID := auth.OrgIDFromContext(c.Request().Context())
	items, total, err := h.svc.ListForms(c.Request().Context(), orgID, status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var res Resolution
	if err := c.Bind(&res); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if res.ResolvedBy == "" {
		res.ResolvedBy = auth.UserIDFromContext(c.Request().Context())
	}
	result, err := h.svc.ResolveUnmatched(c.Request().Context(), id, res)
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrAlreadyResolved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
