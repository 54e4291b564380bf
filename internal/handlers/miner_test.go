package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solar_mining/internal/models"
	"solar_mining/internal/observability"
	"solar_mining/internal/service"
)

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestMinerStatus(t *testing.T) {
	power := 1834.5
	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	mon := &mockMonitoring{status: models.MinerStatus{
		ID:                  1,
		Running:             true,
		PID:                 4242,
		StartedAt:           &started,
		SessionSeconds:      120,
		TotalRunningSeconds: 3600,
		Policy:              "threshold",
		OverrideState:       "OFF",
		LastPowerW:          &power,
		StartThresholdW:     1000,
		StopThresholdW:      500,
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 7}, Monitoring: mon}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/miner/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/miner/status"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var got models.MinerStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if !got.Running || got.PID != 4242 || got.TotalRunningSeconds != 3600 {
		t.Fatalf("unexpected status: %+v", got)
	}
	if got.LastPowerW == nil || *got.LastPowerW != power {
		t.Fatalf("last power: %v", got.LastPowerW)
	}
}

func TestMinerStatus_ServiceError(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: 7},
		Monitoring:    &mockMonitoring{err: errors.New("db locked")},
	}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/miner/status"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), errGetStatus) {
		t.Fatalf("body: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "db locked") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	h := NewHandler(&service.Service{}, m, nil)
	r := h.InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"miner_running", `http_requests_total{route="/health",status="200"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
