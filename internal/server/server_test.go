package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailaudit/internal/config"
	"mailaudit/internal/models"
	"mailaudit/internal/rules"
)

type stubAuditor struct{}

func (stubAuditor) EvaluateEmail(_ context.Context, email models.Email) *models.EmailEvaluation {
	return &models.EmailEvaluation{MessageID: email.MessageID, Results: []models.RuleEvaluationResult{}, Suggestions: []string{}}
}

func (stubAuditor) AuditThread(_ context.Context, _ []models.Email, employeeEmail string) (*models.ThreadAuditReport, error) {
	return &models.ThreadAuditReport{AuditID: "a", ThreadID: "t", EmployeeEmail: employeeEmail}, nil
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "mailaudit_test_total", Help: "test"}))

	s := New(cfg, rules.NewStore("", zerolog.Nop()), stubAuditor{}, nil, registry, zerolog.Nop())
	s.Initialize()
	return s
}

func serve(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, &config.Config{Version: "1.2.3", EnableSwagger: true})
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		headers  map[string]string
		status   int
		contains string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", status: http.StatusOK, contains: `"version":"1.2.3"`},
		{name: "root", method: http.MethodGet, path: "/api/", status: http.StatusOK, contains: "Mail Audit API"},
		{name: "rules", method: http.MethodGet, path: "/api/rules", status: http.StatusOK, contains: `"count":0`},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK, contains: "mailaudit_test_total"},
		{
			name: "audit email", method: http.MethodPost, path: "/api/audit/email", headers: jsonHeader,
			body:   `{"email":{"subject":"s","from":"a@x","to":"b@x","date":"2025-06-17T10:00:00Z","text":"t","messageId":"m"}}`,
			status: http.StatusOK, contains: `"messageId":"m"`,
		},
		{name: "audit thread validation", method: http.MethodPost, path: "/api/audit/thread", headers: jsonHeader, body: `{"emails":[]}`, status: http.StatusBadRequest},
		{name: "reload requires token", method: http.MethodPost, path: "/api/admin/rules/reload", status: http.StatusUnauthorized},
		{name: "login disabled", method: http.MethodPost, path: "/api/admin/login", headers: jsonHeader, body: `{"username":"a","password":"b"}`, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.method, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.status, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestAdminReloadFlow(t *testing.T) {
	s := newTestServer(t, &config.Config{AdminUsername: "admin", AdminPassword: "s3cret"})
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	rec := serve(s, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"s3cret"}`, jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)

	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	// the store has no rule file, so an authorized reload is a client error
	rec = serve(s, http.MethodPost, "/api/admin/rules/reload", "", map[string]string{"Authorization": "Bearer " + login.Token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwaggerDisabled(t *testing.T) {
	s := newTestServer(t, &config.Config{EnableSwagger: false})

	rec := serve(s, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun_DrainsInFlightRequests(t *testing.T) {
	s := newTestServer(t, &config.Config{Port: "0"})

	started := make(chan struct{})
	release := make(chan struct{})
	s.echo.GET("/slow", func(c echo.Context) error {
		close(started)
		<-release
		return c.String(http.StatusOK, "done")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx, 5*time.Second)
	}()

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = s.echo.ListenerAddr()
		return addr != nil
	}, 2*time.Second, 10*time.Millisecond)
	url := fmt.Sprintf("http://127.0.0.1:%d/slow", addr.(*net.TCPAddr).Port)

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get(url)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-started
	cancel()

	select {
	case err := <-runErr:
		t.Fatalf("Run returned while a request was in flight: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the request finished")
	}
	assert.Equal(t, http.StatusOK, <-status)
}
