package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, ClassifierProcess, c.Classifier.Mode)
	assert.Equal(t, MomentumTwelveData, c.Momentum.Source)
	assert.Equal(t, 72*time.Hour, c.Fundamentals.StaleAfter)
	assert.Equal(t, CacheMemory, c.Fundamentals.CacheBackend)
	assert.Equal(t, int64(10<<20), c.Analyze.MaxUploadBytes)
	assert.Equal(t, 0.6, c.Fusion.MinConfidence)
	assert.Equal(t, 70.0, c.Fusion.Overbought)
	assert.Equal(t, 25.0, c.Fusion.MaxPE)
	assert.False(t, c.UsesRedis())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
fusion:
  overbought: 80
classifier:
  mode: remote
  remote_url: http://classifier:8000
fundamentals:
  cache_backend: layered
`))
	require.NoError(t, err)
	assert.Equal(t, 80.0, c.Fusion.Overbought)
	assert.Equal(t, 30.0, c.Fusion.Oversold)
	assert.Equal(t, "http://classifier:8000", c.Classifier.RemoteURL)
	assert.True(t, c.UsesRedis())
}

func TestRedisRefreshQueue(t *testing.T) {
	c, err := Parse([]byte("fundamentals:\n  refresh: redis\nredis:\n  queue:\n    workers: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, CacheMemory, c.Fundamentals.CacheBackend)
	assert.True(t, c.UsesRedis())
	assert.Equal(t, 4, c.Redis.Queue.Workers)
	assert.Equal(t, 3, c.Redis.Queue.RetryLimit)
	assert.Equal(t, 10*time.Second, c.Redis.Queue.RetryDelay)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad mode":         "classifier:\n  mode: magic\n",
		"remote no url":    "classifier:\n  mode: remote\n",
		"kafka no brokers": "fundamentals:\n  refresh: kafka\n",
		"bad backend":      "fundamentals:\n  cache_backend: disk\n",
		"bad refresh":      "fundamentals:\n  refresh: carrier-pigeon\n",
		"inverted rsi":     "fusion:\n  oversold: 80\n  overbought: 70\n",
		"bad level":        "logger:\n  level: loud\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"TWELVE_DATA_API_KEY":   "td",
		"ALPHA_VANTAGE_API_KEY": "av",
		"NEWS_API_KEY":          "na",
		"REDIS_ADDR":            "redis:6380",
		"KAFKA_BROKERS":         "k1:9092, k2:9092,",
		"PORT":                  "9090",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	require.NoError(t, c.ApplyEnv(lookup))
	assert.Equal(t, "td", c.TwelveData.APIKey)
	assert.Equal(t, "av", c.AlphaVantage.APIKey)
	assert.Equal(t, "na", c.NewsAPI.APIKey)
	assert.Equal(t, "redis:6380", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9090, c.Server.Port)

	env["PORT"] = "nope"
	assert.Error(t, c.ApplyEnv(lookup))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: file\nserver:\n  port: 9000\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Environment)
	assert.Equal(t, 9000, c.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
