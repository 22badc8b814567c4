package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskexec/taskexec/internal/api"
	"github.com/taskexec/taskexec/internal/supervisor"
)

func newTestServer(t *testing.T) (*http.Server, *supervisor.Supervisor) {
	t.Helper()
	sup := supervisor.New(zap.NewNop())
	srv := api.NewServer("127.0.0.1:0", zap.NewNop(), sup)
	return srv, sup
}

func doGET(srv *http.Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(w, req)
	return w
}

func TestPingRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doGET(srv, "/api/ping")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestTasksRouteEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doGET(srv, "/api/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Total-Count"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got)
}

func TestTasksRoutePopulated(t *testing.T) {
	srv, sup := newTestServer(t)
	require.NoError(t, sup.Run([]string{"/bin/echo", "hi"}))

	w := doGET(srv, "/api/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, float64(0), got[0]["number"])
}

func TestTaskByNumberRoute(t *testing.T) {
	srv, sup := newTestServer(t)
	require.NoError(t, sup.Run([]string{"/bin/echo", "hi"}))

	w := doGET(srv, "/api/tasks/0")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(0), got["number"])
}

func TestTaskByNumberRouteNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doGET(srv, "/api/tasks/42")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskByNumberRouteInvalid(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doGET(srv, "/api/tasks/not-a-number")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRoute(t *testing.T) {
	srv, sup := newTestServer(t)
	d := supervisor.NewDispatcher(sup)
	// "sleep 0" is dispatched and recorded into history without writing
	// anything to the stdin/stdout protocol stream.
	d.Dispatch("sleep 0", false)

	w := doGET(srv, "/api/history?n=1")
	require.Equal(t, http.StatusOK, w.Code)

	var got []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"sleep 0"}, got)
}
