package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/api/handlers"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/internal/metrics"
	"github.com/BaSui01/voiceweb/testutil"
)

func newTestServer(t *testing.T, cfg *config.Config, store answers.Store) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := NewServer(cfg, metrics.NewCollector(nextTestNamespace(), zap.NewNop()), store, zaptest.NewLogger(t))
	srv.RegisterCheck(handlers.NewPingCheck("store", func(context.Context) error { return nil }))
	return srv.Handler(ctx)
}

func TestServer_SessionProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"client_secret":{"value":"ek_1","expires_at":1}}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Realtime.UpstreamURL = upstream.URL
	cfg.Realtime.APIKey = "sk-test"
	h := newTestServer(t, cfg, nil)

	r := httptest.NewRequest(http.MethodGet, "/session", nil)
	r.Header.Set("Origin", "https://page.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	testutil.AssertJSONEqual(t, `{"result":{"client_secret":{"value":"ek_1","expires_at":1}}}`, w.Body.Bytes())
}

func TestServer_HealthAndReady(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig(), nil)

	for _, path := range []string{"/health", "/healthz", "/ready", "/version"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestServer_AnswersRoutes(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig(), answers.NewMemoryStore())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/answers",
		strings.NewReader(`{"question":"q","answer":"a"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/answers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/answers", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_AnswersAbsentWithoutStore(t *testing.T) {
	h := newTestServer(t, config.DefaultConfig(), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/answers", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
