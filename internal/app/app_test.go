package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/app"
	"github.com/alex-user-go/tripquote/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Addr:              "127.0.0.1:0",
		LogLevel:          "info",
		ShutdownTimeout:   time.Second,
		Providers:         []string{"p1=http://127.0.0.1:1"},
		ProviderTimeout:   100 * time.Millisecond,
		SearchTimeout:     100 * time.Millisecond,
		SearchCacheTTL:    time.Second,
		RateLimit:         10,
		RateLimitWindow:   time.Minute,
		RateSourceURL:     "http://127.0.0.1:1",
		RateSourceTimeout: 100 * time.Millisecond,
		RateCacheTTL:      time.Minute,
		Spread:            "0.02",
		BaseCurrency:      "EUR",
	}
}

func newApp(t *testing.T, cfg config.Config) *app.App {
	t.Helper()
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func get(t *testing.T, a *app.App, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestApp_Routes(t *testing.T) {
	a := newApp(t, testConfig())

	w := get(t, a, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(t, a, "/convert?amount=10&from=EUR&to=EUR")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, a, "/offers/search?category=hotels&city=paris&checkin=2025-12-01&nights=2&adults=2")
	assert.Equal(t, http.StatusInternalServerError, w.Code, "every provider is unreachable")

	w = get(t, a, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "requests_total")
}

func TestApp_FallbackRatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.properties")
	require.NoError(t, os.WriteFile(path, []byte("base = EUR\nrate.USD = 2\n"), 0o600))

	cfg := testConfig()
	cfg.FallbackRatesFile = path
	cfg.Spread = "0"
	a := newApp(t, cfg)

	w := get(t, a, "/convert?amount=10&from=EUR&to=USD")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"20"`)
}

func TestApp_BadFallbackFile(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackRatesFile = filepath.Join(t.TempDir(), "missing.properties")

	_, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestApp_RedisRateCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	a := newApp(t, cfg)

	w := get(t, a, "/convert?amount=1&from=EUR&to=EUR")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	a := newApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_ServeReportsListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "not-an-address"
	a := newApp(t, cfg)

	err := a.Serve(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "server error"))
}
