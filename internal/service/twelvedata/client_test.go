package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "ChartVerdict/internal/domain/repository"
)

func TestRSI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rsi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "INFY.NSE", q.Get("symbol"))
		assert.Equal(t, "1day", q.Get("interval"))
		assert.Equal(t, "14", q.Get("time_period"))
		assert.Equal(t, "key", q.Get("apikey"))
		_, _ = w.Write([]byte(`{"meta":{"symbol":"INFY"},"values":[{"datetime":"2024-05-01","rsi":"72.41635"},{"datetime":"2024-04-30","rsi":"65.1"}],"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", time.Second, WithSymbolSuffix(".NSE"))
	rsi, err := c.RSI(context.Background(), "INFY")
	require.NoError(t, err)
	assert.InDelta(t, 72.41635, rsi, 1e-9)
}

func TestEMA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ema", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("time_period"))
		_, _ = w.Write([]byte(`{"values":[{"datetime":"2024-05-01","ema":"181.5"}],"status":"ok"}`))
	}))
	defer srv.Close()

	ema, err := New(srv.URL, "key", time.Second).EMA(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 181.5, ema)
}

func TestRSIErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		noData bool
	}{
		"api error":     {http.StatusOK, `{"code":400,"message":"symbol not found","status":"error"}`, false},
		"empty values":  {http.StatusOK, `{"values":[],"status":"ok"}`, true},
		"missing field": {http.StatusOK, `{"values":[{"datetime":"x"}],"status":"ok"}`, true},
		"bad number":    {http.StatusOK, `{"values":[{"rsi":"abc"}],"status":"ok"}`, false},
		"http 401":      {http.StatusUnauthorized, `{"message":"bad key"}`, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "key", time.Second).RSI(context.Background(), "AAPL")
			require.Error(t, err)
			assert.Equal(t, tc.noData, errors.Is(err, domrepo.ErrNoData))
		})
	}
}

func TestRSIRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"values":[{"rsi":"50"}],"status":"ok"}`))
	}))
	defer srv.Close()

	rsi, err := New(srv.URL, "key", time.Second).RSI(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rsi)
	assert.Equal(t, 2, calls)
}

func TestRSIRequiresSymbol(t *testing.T) {
	_, err := New("http://unused", "key", time.Second).RSI(context.Background(), "")
	assert.ErrorIs(t, err, domrepo.ErrNoSymbol)
}
