package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLatest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/secret/latest/MYR", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"MYR","conversion_rates":{"MYR":1,"USD":0.2120,"JPY":31.75}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", zap.NewNop())
	rates, err := c.Latest(context.Background(), "myr")
	require.NoError(t, err)

	// Los decimales se mantienen tal cual llegan.
	assert.Equal(t, map[string]string{"MYR": "1", "USD": "0.2120", "JPY": "31.75"}, rates)
}

func TestLatest_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", zap.NewNop()).Latest(context.Background(), "MYR")
	assert.ErrorContains(t, err, "invalid-key")
}

func TestLatest_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"USD":0.21}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", zap.NewNop(), WithRetries(3, time.Millisecond))
	rates, err := c.Latest(context.Background(), "MYR")
	require.NoError(t, err)
	assert.Equal(t, "0.21", rates["USD"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLatest_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", zap.NewNop(), WithRetries(1, time.Millisecond))
	_, err := c.Latest(context.Background(), "MYR")
	assert.Error(t, err)
}

func TestLatest_MissingKey(t *testing.T) {
	_, err := NewClient("http://unused", "", zap.NewNop()).Latest(context.Background(), "MYR")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLatest_ErrorsDoNotLeakAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "SECRET-KEY-123", nil, WithRetries(0, 0)).Latest(context.Background(), "MYR")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.Contains(t, err.Error(), "status 500")

	// Error de transporte: servidor ya cerrado.
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = NewClient(closed.URL, "SECRET-KEY-123", nil, WithRetries(0, 0)).Latest(context.Background(), "MYR")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestScrub_DropsURL(t *testing.T) {
	kv := scrub([]interface{}{"method", "GET", "url", "http://x/v6/SECRET/latest/MYR", "status", 500})
	assert.Equal(t, []interface{}{"method", "GET", "status", 500}, kv)
}
