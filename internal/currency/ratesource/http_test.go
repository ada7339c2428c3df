package ratesource_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/currency/ratesource"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPSource_Rates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Equal(t, "GBP", r.URL.Query().Get("base"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"base":"GBP","rates":{"eur":1.17,"USD":"1.27"}}`)
	}))
	defer srv.Close()

	src := ratesource.NewHTTPSource(srv.URL, ratesource.DefaultSettings(), discardLogger())

	rates, err := src.Rates(context.Background(), "gbp")
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "1.17", rates["EUR"].String())
	assert.Equal(t, "1.27", rates["USD"].String())
}

func TestHTTPSource_RejectsWrongBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"base":"USD","rates":{"EUR":0.92}}`)
	}))
	defer srv.Close()

	src := ratesource.NewHTTPSource(srv.URL, ratesource.DefaultSettings(), discardLogger())

	_, err := src.Rates(context.Background(), "GBP")
	assert.Error(t, err)
}

func TestHTTPSource_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	settings := ratesource.Settings{Timeout: time.Second, ConsecutiveFailures: 2, OpenFor: time.Minute}
	src := ratesource.NewHTTPSource(srv.URL, settings, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := src.Rates(context.Background(), "EUR")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ratesource.ErrUnavailable)
	}

	assert.True(t, src.Open())

	_, err := src.Rates(context.Background(), "EUR")
	require.ErrorIs(t, err, ratesource.ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}
