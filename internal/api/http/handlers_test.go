package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"github.com/unforced/nature-of-ai/internal/infrastructure/monitoring"
	"github.com/unforced/nature-of-ai/internal/sandbox"
)

type testServer struct {
	router *gin.Engine
	host   *sandbox.Host
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	cfg := sandbox.DefaultConfig()
	cfg.FrameRate = 200
	host := sandbox.NewHost(playground.NewStore(), cfg, sandbox.WithObserver(metrics))
	t.Cleanup(func() { _ = host.Close() })

	router := gin.New()
	NewHandlers(host, nil, metrics, nil).Register(router)
	return &testServer{router: router, host: host}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) PlaygroundResponse {
	t.Helper()
	var resp PlaygroundResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetPlayground(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/playground", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, playground.DefaultCode, resp.Code)
	assert.False(t, resp.IsRunning)
	assert.Nil(t, resp.Error)
	assert.Equal(t, playground.ThemeDark, resp.Theme)
	assert.Equal(t, "vs-dark", resp.EditorTheme)
	assert.Equal(t, sandbox.Idle, resp.Status.Context)
	assert.Contains(t, w.Body.String(), `"context":"idle"`)
}

func TestSetCode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/playground/code", `{"code":"console.log(1)"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", decode(t, w).Code)

	w = s.do(http.MethodPut, "/api/playground/code", `{"code":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode(t, w).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/playground/code", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/playground/code", `not json`).Code)
}

func TestRunAndStop(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPut, "/api/playground/code", `{"code":"console.log(\"hello\", 42)"}`)

	w := s.do(http.MethodPost, "/api/playground/run", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"run_id":1}`, w.Body.String())

	require.Eventually(t, func() bool {
		return len(s.host.Snapshot().Output) == 1
	}, 3*time.Second, 10*time.Millisecond)

	resp := decode(t, s.do(http.MethodGet, "/api/playground", ""))
	assert.True(t, resp.IsRunning)
	assert.Equal(t, []string{"[log] hello 42"}, resp.Output)
	assert.Equal(t, uint64(1), resp.Status.RunID)

	w = s.do(http.MethodPost, "/api/playground/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.False(t, resp.IsRunning)
	assert.Equal(t, []string{"[log] hello 42"}, resp.Output, "stop keeps output")

	w = s.do(http.MethodPost, "/api/playground/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRuntimeErrorSurfaces(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPut, "/api/playground/code", `{"code":"let y = x + 1;"}`)
	s.do(http.MethodPost, "/api/playground/run", "")

	require.Eventually(t, func() bool {
		return s.host.Snapshot().Error != nil
	}, 3*time.Second, 10*time.Millisecond)

	resp := decode(t, s.do(http.MethodGet, "/api/playground", ""))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "x is not defined", *resp.Error)
	assert.Empty(t, resp.Output)
}

func TestClearOutputAndError(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/playground/error", `{"error":"manual"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "manual", *resp.Error)

	w = s.do(http.MethodDelete, "/api/playground/output", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Empty(t, resp.Output)
	require.NotNil(t, resp.Error, "clearing output keeps the error")

	w = s.do(http.MethodPut, "/api/playground/error", `{"error":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w).Error)
}

func TestSetTheme(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/playground/theme", `{"theme":"light"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, playground.ThemeLight, resp.Theme)
	assert.Equal(t, "light", resp.EditorTheme)

	w = s.do(http.MethodPut, "/api/playground/theme", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid theme")
}

func TestReset(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPut, "/api/playground/code", `{"code":"let a = 1"}`)
	s.do(http.MethodPut, "/api/playground/error", `{"error":"boom"}`)
	s.do(http.MethodPost, "/api/playground/run", "")

	w := s.do(http.MethodPost, "/api/playground/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, playground.DefaultCode, resp.Code)
	assert.False(t, resp.IsRunning)
	assert.Empty(t, resp.Output)
	assert.Nil(t, resp.Error)
	assert.Equal(t, sandbox.Idle, resp.Status.Context)
}

func TestHandoff(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/playground/handoff/claim", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/api/playground/handoff", `{"code":"circle(10, 10, 5)"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/playground/handoff/claim", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "circle(10, 10, 5)", decode(t, w).Code)

	w = s.do(http.MethodPost, "/api/playground/handoff/claim", "")
	assert.Equal(t, http.StatusNoContent, w.Code, "slot is consumed once")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/playground/handoff", `{}`).Code)
}

func TestClosedHost(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.host.Close())

	w := s.do(http.MethodPost, "/api/playground/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodPost, "/api/playground/stop", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	s.do(http.MethodPut, "/api/playground/code", `{"code":""}`)
	s.do(http.MethodPost, "/api/playground/run", "")

	w = s.do(http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap monitoring.Snapshot
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Runs)
	assert.Equal(t, int64(1), snap.ActiveContexts)
}
