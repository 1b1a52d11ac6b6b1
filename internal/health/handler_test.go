// Inventra | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthyChecker() Checker {
	return checkerFunc(func(ctx context.Context) error { return nil })
}

func failingChecker() Checker {
	return checkerFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
}

func TestLiveness(t *testing.T) {
	h := NewHandler(healthyChecker(), healthyChecker(), "1.0.0")

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", resp.Version)
	}
}

func TestLivenessDuringShutdown(t *testing.T) {
	h := NewHandler(healthyChecker(), healthyChecker(), "1.0.0")
	h.SetShutdown(true)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		db         Checker
		redis      Checker
		wantStatus int
		wantBody   string
	}{
		{"all healthy", healthyChecker(), healthyChecker(), http.StatusOK, "ok"},
		{"db down", failingChecker(), healthyChecker(), http.StatusServiceUnavailable, "degraded"},
		{"redis down", healthyChecker(), failingChecker(), http.StatusServiceUnavailable, "degraded"},
		{"missing checker", nil, healthyChecker(), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.db, tt.redis, "1.0.0")

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", resp.Status, tt.wantBody)
			}
			if len(resp.Checks) != 2 {
				t.Errorf("checks = %d, want 2", len(resp.Checks))
			}
		})
	}
}

func TestReadinessNotReady(t *testing.T) {
	h := NewHandler(healthyChecker(), healthyChecker(), "1.0.0")
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
