package handlers

import (
	"context"
	"net/http"
	"time"

	"kettle_protocol/internal/models"
	"kettle_protocol/internal/service"

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

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockStatusView struct {
	reading service.StatusReading
	reads   int
}

func (m *mockStatusView) ReadStatus() service.StatusReading {
	m.reads++
	return m.reading
}

type mockRemainingView struct {
	reading service.RemainingReading
}

func (m *mockRemainingView) ReadRemaining() service.RemainingReading {
	return m.reading
}

type mockActivity struct {
	reading    service.ActivityReading
	refreshErr error
	refreshes  int
}

func (m *mockActivity) Refresh(ctx context.Context) error {
	m.refreshes++
	return m.refreshErr
}
func (m *mockActivity) Reading() service.ActivityReading {
	return m.reading
}
func (m *mockActivity) Run(ctx context.Context, tick time.Duration) {}

type mockEventLog struct {
	resp     []models.KettleEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.KettleEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
