package timeline

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/timeline", h.ListTimeline)
	api.GET("/patients/:id/timeline/open", h.GetOpenEntry)
}

func (h *Handler) ListTimeline(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}
	pg := pagination.FromContext(c)

	entries, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOpenEntry(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}

	// The ledger is the source of truth here, so the fallback query alone
	// is enough; no pointer needed.
	entry, err := h.svc.OpenEntry(c.Request().Context(), patientID, nil)
	if err != nil {
		return err
	}
	if entry == nil {
		return apperr.New(apperr.KindNotFound, "patient %s has no open timeline entry", patientID)
	}
	return c.JSON(http.StatusOK, entry)
}
