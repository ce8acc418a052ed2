package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmkteam/embedlog"
)

func TestUSDToCLPFetchAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"serie":[{"fecha":"2025-12-18T03:00:00.000Z","valor":950.12}]}`))
	}))
	defer srv.Close()

	c := NewClient(embedlog.NewLogger(false, false), time.Hour)
	c.url = srv.URL

	rate := c.USDToCLP(context.Background())
	assert.True(t, rate.Value.Equal(decimal.RequireFromString("950.12")), "got %s", rate.Value)
	assert.Equal(t, "mindicador.cl", rate.Source)
	assert.Equal(t, 2025, rate.Timestamp.Year())

	// second call within ttl hits the cache
	rate = c.USDToCLP(context.Background())
	assert.True(t, rate.Value.Equal(decimal.RequireFromString("950.12")))
	assert.Equal(t, 1, calls)
}

func TestUSDToCLPFallbackWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(embedlog.NewLogger(false, false), time.Hour)
	c.url = srv.URL

	rate := c.USDToCLP(context.Background())
	assert.True(t, rate.Value.Equal(DefaultRate))
	assert.Equal(t, SourceFallback, rate.Source)
}

func TestUSDToCLPStaleCacheOnFailure(t *testing.T) {
	ok := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"serie":[{"fecha":"2025-12-18T03:00:00.000Z","valor":911.5}]}`))
	}))
	defer srv.Close()

	c := NewClient(embedlog.NewLogger(false, false), time.Nanosecond)
	c.url = srv.URL

	rate := c.USDToCLP(context.Background())
	require.True(t, rate.Value.Equal(decimal.RequireFromString("911.5")))

	// ttl expired and the feed is down: the stale quote is reused
	ok = false
	time.Sleep(time.Millisecond)
	rate = c.USDToCLP(context.Background())
	assert.True(t, rate.Value.Equal(decimal.RequireFromString("911.5")))
	assert.Equal(t, "mindicador.cl", rate.Source)
}

func TestFetchRejectsBadPayloads(t *testing.T) {
	for name, body := range map[string]string{
		"empty serie":  `{"serie":[]}`,
		"bad json":     `{`,
		"non-positive": `{"serie":[{"fecha":"2025-12-18T03:00:00.000Z","valor":0}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(embedlog.NewLogger(false, false), time.Hour)
			c.url = srv.URL

			_, err := c.fetch(context.Background())
			assert.Error(t, err)
		})
	}
}
