package checklist

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := NewService(newMockRuleRepo(), NewRegistry())
	return NewHandler(svc), echo.New()
}

func TestHandler_CreateRule(t *testing.T) {
	h, e := newTestHandler()

	body := `{"from_stage":"onboarding","to_stage":"pre-procedure","required_on_entry":["consent_signed"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checklist-rules", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var rule Rule
	json.Unmarshal(rec.Body.Bytes(), &rule)
	if rule.FromStage != "onboarding" || len(rule.RequiredOnEntry) != 1 {
		t.Errorf("unexpected rule in response: %+v", rule)
	}
}

func TestHandler_CreateRule_Invalid(t *testing.T) {
	h, e := newTestHandler()

	body := `{"from_stage":"onboarding","to_stage":"onboarding"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checklist-rules", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateRule(c)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_ListRules(t *testing.T) {
	h, e := newTestHandler()

	if err := h.svc.CreateRule(nil, &Rule{FromStage: "a", ToStage: "b"}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checklist-rules", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRules(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rules []*Rule
	json.Unmarshal(rec.Body.Bytes(), &rules)
	if len(rules) != 1 {
		t.Errorf("expected 1 rule, got %d", len(rules))
	}
}

func TestHandler_DeleteRule_BadID(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.DeleteRule(c)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
