package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runHealth(t *testing.T, checks ...Check) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := HealthHandler(checks...)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	rec, body := runHealth(t, Check{Name: "postgres", Ping: ok}, Check{Name: "redis", Ping: ok})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestHealthHandler_OneFailing(t *testing.T) {
	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("connection refused") }
	rec, body := runHealth(t, Check{Name: "postgres", Ping: bad}, Check{Name: "redis", Ping: ok})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	checks := body["checks"].(map[string]interface{})
	if checks["postgres"] != "connection refused" {
		t.Errorf("expected postgres failure message, got %v", checks["postgres"])
	}
	if checks["redis"] != "ok" {
		t.Errorf("expected redis ok, got %v", checks["redis"])
	}
}

func TestHealthHandler_NoChecks(t *testing.T) {
	rec, _ := runHealth(t)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with no checks, got %d", rec.Code)
	}
}
