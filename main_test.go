package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/boron/funnel-service/internal/config"
	"github.com/boron/funnel-service/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() *config.Config {
	return &config.Config{
		Storage:   config.StorageConfig{Backend: config.BackendMemory},
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 5},
	}
}

func get(a *app, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestApp_Endpoints(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusOK, get(a, "/health").Code)
	assert.Equal(t, http.StatusOK, get(a, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(a, "/swagger/doc.json").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(testutil.FullFunnelJSON))
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(a, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "funnel_pages_published_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")

	// a second app gets its own registry
	b, err := newApp(context.Background(), testConfig())
	require.NoError(t, err)
	b.Close()
}

func TestApp_SQLiteAndRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := testConfig()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "funnels.db")
	cfg.Redis = config.RedisConfig{Host: m.Host(), Port: m.Port()}
	cfg.RateLimit.UseRedis = true
	cfg.RateLimit.WindowSeconds = 60

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.redis)

	w := get(a, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":true`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/s/funnel", strings.NewReader(testutil.ScenarioJSON))
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, m.Exists("funnel:session:s"))

	m.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(a, "/ready").Code)
}

func TestApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: "1"}
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.redis)
	assert.Equal(t, http.StatusServiceUnavailable, get(a, "/ready").Code)
}
