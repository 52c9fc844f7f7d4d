package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartVerdict/internal/service/ratelimit"
	"ChartVerdict/pkg/config"
	"ChartVerdict/pkg/queue"
)

type recordingRequester struct {
	mu      sync.Mutex
	symbols []string
}

func (r *recordingRequester) RequestRefresh(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols = append(r.symbols, symbol)
	return nil
}

func (r *recordingRequester) requested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.symbols...)
}

type recordingHandler struct {
	mu    sync.Mutex
	calls int
}

func (h *recordingHandler) Topic() string { return "fundamentals.refresh" }
func (h *recordingHandler) Type() string  { return "fundamentals.refresh" }

func (h *recordingHandler) Handle(context.Context, []byte) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) handled() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Metrics.Enabled = false
	return cfg
}

func TestAppRunWarmsAndStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fundamentals.WarmSymbols = []string{"AAPL", "MSFT"}
	req := &recordingRequester{}
	app := New(cfg, nil, nil, nil, nil, &recordingHandler{}, req, ratelimit.New(10, 5))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	assert.Eventually(t, func() bool { return len(req.requested()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, req.requested())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestAppRunConsumesRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewRedisQueue(nil, queue.Config{Workers: 1}, client)

	h := &recordingHandler{}
	app := New(testConfig(t), nil, nil, nil, q, h, &recordingRequester{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.NoError(t, q.Enqueue(context.Background(), h.Type(), map[string]string{"symbol": "NVDA"}))
	assert.Eventually(t, func() bool { return h.handled() == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
