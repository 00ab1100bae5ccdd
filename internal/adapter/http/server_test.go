package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	httpadapter "github.com/couchcryptid/snowex-etl-service/internal/adapter/http"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

type mockReadiness struct {
	err   error
	calls int
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error {
	m.calls++
	return m.err
}

type mockProgress struct {
	p pipeline.Progress
}

func (m *mockProgress) Progress() pipeline.Progress { return m.p }

var running = pipeline.Progress{RunID: "3f1c", Kind: "profile", Running: true, Total: 12, Attempted: 5, Uploaded: 4, Failed: 1}

func serve(t *testing.T, srv *httpadapter.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func newServer(ready *mockReadiness, p pipeline.Progress) *httpadapter.Server {
	return httpadapter.NewServer(":0", ready, &mockProgress{p: p}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		readyErr error
		progress pipeline.Progress
		method   string
		path     string
		code     int
		body     string
	}{
		{
			name:     "healthz while running",
			progress: running,
			method:   http.MethodGet,
			path:     "/healthz",
			code:     http.StatusOK,
			body:     `{"status":"healthy","batch":"running","run_id":"3f1c"}`,
		},
		{
			name:   "healthz before a batch",
			method: http.MethodGet,
			path:   "/healthz",
			code:   http.StatusOK,
			body:   `{"status":"healthy","batch":"idle"}`,
		},
		{
			name:   "readyz",
			method: http.MethodGet,
			path:   "/readyz",
			code:   http.StatusOK,
			body:   `{"status":"ready"}`,
		},
		{
			name:     "readyz database down",
			readyErr: errors.New("database unreachable"),
			method:   http.MethodGet,
			path:     "/readyz",
			code:     http.StatusServiceUnavailable,
			body:     `{"status":"not ready","component":"database","error":"database unreachable"}`,
		},
		{
			name:     "status",
			progress: running,
			method:   http.MethodGet,
			path:     "/status",
			code:     http.StatusOK,
			body:     `{"run_id":"3f1c","kind":"profile","running":true,"total":12,"attempted":5,"uploaded":4,"failed":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(&mockReadiness{err: tt.readyErr}, tt.progress)
			rec := serve(t, srv, tt.method, tt.path)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestReadyzChecksEveryRequest(t *testing.T) {
	ready := &mockReadiness{}
	srv := newServer(ready, pipeline.Progress{})
	serve(t, srv, http.MethodGet, "/readyz")
	serve(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, 2, ready.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, newServer(&mockReadiness{}, pipeline.Progress{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownMethodRejected(t *testing.T) {
	rec := serve(t, newServer(&mockReadiness{}, pipeline.Progress{}), http.MethodPost, "/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
