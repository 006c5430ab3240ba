package lifecycle

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
	api.POST("/patients", h.Register)
	api.POST("/patients/:id/transition", h.Transition)
}

func (h *Handler) Register(c echo.Context) error {
	var params RegisterParams
	if err := c.Bind(&params); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	p, err := h.svc.Register(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Transition(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	result, err := h.svc.TransitionWithRetry(c.Request().Context(), patientID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
