package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"solar_mining/internal/models"
	"solar_mining/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockMonitoring returns status, or the next entry of statuses on each call
// when set (repeating the last one).
type mockMonitoring struct {
	mu       sync.Mutex
	status   models.MinerStatus
	statuses []models.MinerStatus
	err      error
	calls    int
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (models.MinerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return models.MinerStatus{}, m.err
	}
	if len(m.statuses) == 0 {
		return m.status, nil
	}
	i := min(m.calls-1, len(m.statuses)-1)
	return m.statuses[i], nil
}

type mockEventLog struct {
	resp     []models.MinerEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.MinerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockSessions struct {
	resp       []models.Session
	summary    service.SessionSummary
	err        error
	lastFilter service.SessionFilter
}

func (m *mockSessions) ListSessions(ctx context.Context, f service.SessionFilter) ([]models.Session, service.SessionSummary, error) {
	m.lastFilter = f
	return m.resp, m.summary, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
