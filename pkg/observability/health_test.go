package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestHealthChecker_Check(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		setup  func(h *HealthChecker)
		status string
	}{
		{name: "no checks", setup: func(h *HealthChecker) {}, status: StatusHealthy},
		{name: "all passing", setup: func(h *HealthChecker) {
			h.AddCheck("registry", true, ok)
			h.AddCheck("store", false, ok)
		}, status: StatusHealthy},
		{name: "optional failing", setup: func(h *HealthChecker) {
			h.AddCheck("registry", true, ok)
			h.AddCheck("store", false, fail)
		}, status: StatusDegraded},
		{name: "critical failing", setup: func(h *HealthChecker) {
			h.AddCheck("store", false, fail)
			h.AddCheck("registry", true, fail)
		}, status: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("test")
			tt.setup(h)

			status := h.Check(context.Background())
			if status.Status != tt.status {
				t.Errorf("Expected %s, got %s", tt.status, status.Status)
			}
			if status.Version != "test" {
				t.Errorf("Expected version test, got %s", status.Version)
			}
		})
	}
}

func TestHealthRoutes(t *testing.T) {
	h := NewHealthChecker("v1")
	h.AddCheck("registry", true, func(context.Context) error { return errors.New("not initialized") })

	router := mux.NewRouter()
	RegisterHealthRoutes(router, h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected liveness 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected readiness 503, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Dependencies["registry"].Message != "not initialized" {
		t.Errorf("Unexpected dependency status: %+v", status.Dependencies)
	}
}
