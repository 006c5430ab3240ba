package checklist

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/checklist-rules", h.ListRules)
	api.POST("/checklist-rules", h.CreateRule)
	api.DELETE("/checklist-rules/:id", h.DeleteRule)
}

func (h *Handler) ListRules(c echo.Context) error {
	rules, err := h.svc.ListRules(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rules)
}

func (h *Handler) CreateRule(c echo.Context) error {
	var rule Rule
	if err := c.Bind(&rule); err != nil {
		return apperr.New(apperr.KindValidation, "invalid body: %v", err)
	}
	if err := h.svc.CreateRule(c.Request().Context(), &rule); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rule)
}

func (h *Handler) DeleteRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid id")
	}
	if err := h.svc.DeleteRule(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
