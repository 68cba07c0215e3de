package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendor-rewards-api/internal/config"
	"vendor-rewards-api/internal/handler"
	"vendor-rewards-api/internal/metrics"
	"vendor-rewards-api/internal/middleware"
	"vendor-rewards-api/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "rewards.db"))
	t.Setenv("LOG_FILE", "")
	t.Setenv("REDIS_ADDR", "")
	cfg, err := loadConfig("", "error")
	require.NoError(t, err)
	return cfg
}

func TestNewRouter(t *testing.T) {
	cfg := testConfig(t)
	db, err := openDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	m := metrics.New("rewards")
	limiter := middleware.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	svc := service.NewServiceWithOptions(db, service.Options{Metrics: m})
	defer svc.Events().Shutdown()
	router := newRouter(cfg, handler.NewHandler(svc), m, limiter)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `rewards_http_requests_total{method="GET",route="/health",status="200"} 1`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")

	cfg := testConfig(t)
	assert.Equal(t, "error", cfg.Logging.Level)

	_, err := loadConfig("", "chatty")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	cfg := testConfig(t)

	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(cfg.Database.Path)
	assert.NoError(t, err)
}
