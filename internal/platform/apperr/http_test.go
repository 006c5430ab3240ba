package apperr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(e, zerolog.Nop())(err, c)

	var body errorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHTTPErrorHandlerKindedError(t *testing.T) {
	rec, body := render(t, New(KindConflict, "entry already closed"))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if body.Error != "conflict" || !body.Retryable {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHTTPErrorHandlerValidationNotRetryable(t *testing.T) {
	rec, body := render(t, New(KindValidation, "to_stage is required"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if body.Retryable {
		t.Error("validation errors must not be marked retryable")
	}
}

func TestHTTPErrorHandlerEchoErrorFallsThrough(t *testing.T) {
	rec, _ := render(t, echo.NewHTTPError(http.StatusTeapot, "kettle"))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected echo's handler to render 418, got %d", rec.Code)
	}
}

func TestHTTPErrorHandlerUnknownErrorIs500(t *testing.T) {
	rec, body := render(t, errPlain{})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body.Error != "internal" {
		t.Errorf("unexpected body: %+v", body)
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "boom" }
