package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/metrics"
	"github.com/umputun/feedpipe/server/mocks"
)

func testConfig(listen string) *mocks.ConfigProviderMock {
	return &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) {
			return listen, 30 * time.Second
		},
	}
}

func TestServer_New(t *testing.T) {
	srv := New(testConfig(":8080"), &mocks.DatabaseMock{}, &mocks.SchedulerMock{}, &mocks.BreakersMock{}, nil, "1.0.0", false)
	assert.NotNil(t, srv)
	assert.Equal(t, "1.0.0", srv.version)
	assert.False(t, srv.debug)
	assert.NotNil(t, srv.router)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	srv := New(testConfig(fmt.Sprintf("127.0.0.1:%d", port)), &mocks.DatabaseMock{}, &mocks.SchedulerMock{},
		&mocks.BreakersMock{}, nil, "1.0.0", true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/ping", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test request
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_AppInfoHeaders(t *testing.T) {
	srv := New(testConfig(":8080"), &mocks.DatabaseMock{}, &mocks.SchedulerMock{}, &mocks.BreakersMock{}, nil, "1.2.3", false)

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "feedpipe", w.Header().Get("App-Name"))
	assert.Equal(t, "1.2.3", w.Header().Get("App-Version"))
}

func TestRenderJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RenderJSON(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusCreated, map[string]int{"a": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a":1}`, w.Body.String())
}

func TestRenderError(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		w := httptest.NewRecorder()
		RenderError(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody), fmt.Errorf("bad thing"), http.StatusBadRequest)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bad thing", resp["error"])
	})

	t.Run("nil error", func(t *testing.T) {
		w := httptest.NewRecorder()
		RenderError(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody), nil, http.StatusInternalServerError)
		assert.JSONEq(t, `{"error":"unknown error"}`, w.Body.String())
	})
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	m.BreakerStateChanged("hn", domain.BreakerOpen)
	srv := New(testConfig(":8080"), &mocks.DatabaseMock{}, &mocks.SchedulerMock{}, &mocks.BreakersMock{}, m.Handler(), "1.0.0", false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `feedpipe_circuit_breaker_state{source="hn"} 0`)

	t.Run("not mounted without handler", func(t *testing.T) {
		srv := New(testConfig(":8080"), &mocks.DatabaseMock{}, &mocks.SchedulerMock{}, &mocks.BreakersMock{}, nil, "1.0.0", false)
		req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
