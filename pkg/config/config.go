package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ChartVerdict/internal/services/fusion"
)

const (
	ClassifierProcess = "process"
	ClassifierRemote  = "remote"
	ClassifierStub    = "stub"

	MomentumTwelveData = "twelvedata"
	MomentumClickHouse = "clickhouse"

	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"

	RefreshInline = "inline"
	RefreshKafka  = "kafka"
	RefreshRedis  = "redis"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			RPS     float64 `yaml:"rps" default:"5" validate:"gte=0"`
			Burst   int     `yaml:"burst" default:"10" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"service_name" default:"chartverdict"`
	} `yaml:"tracing"`
	Analyze struct {
		ChartTimeout        time.Duration `yaml:"chart_timeout" default:"30s"`
		MomentumTimeout     time.Duration `yaml:"momentum_timeout" default:"5s"`
		FundamentalsTimeout time.Duration `yaml:"fundamentals_timeout" default:"5s"`
		NewsTimeout         time.Duration `yaml:"news_timeout" default:"5s"`
		MaxUploadBytes      int64         `yaml:"max_upload_bytes" default:"10485760" validate:"gt=0"`
		MaxNews             int           `yaml:"max_news" default:"5" validate:"gte=0,lte=20"`
	} `yaml:"analyze"`
	Fusion     fusion.Thresholds `yaml:"fusion"`
	Classifier struct {
		Mode      string        `yaml:"mode" default:"process" validate:"oneof=process remote stub"`
		Command   string        `yaml:"command" default:"python3"`
		Args      []string      `yaml:"args"`
		UploadDir string        `yaml:"upload_dir" default:"uploads"`
		RemoteURL string        `yaml:"remote_url"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		Stub      struct {
			Trend      string   `yaml:"trend" default:"Sideways"`
			Confidence float64  `yaml:"confidence" default:"0.5" validate:"gte=0,lte=1"`
			Volatility *float64 `yaml:"volatility"`
		} `yaml:"stub"`
	} `yaml:"classifier"`
	Momentum struct {
		Source    string `yaml:"source" default:"twelvedata" validate:"oneof=twelvedata clickhouse"`
		Period    int    `yaml:"period" default:"14" validate:"gt=1"`
		EMAPeriod int    `yaml:"ema_period" default:"20" validate:"gt=1"`
	} `yaml:"momentum"`
	TwelveData struct {
		BaseURL      string        `yaml:"base_url" default:"https://api.twelvedata.com"`
		APIKey       string        `yaml:"api_key"`
		Interval     string        `yaml:"interval" default:"1day"`
		SymbolSuffix string        `yaml:"symbol_suffix"`
		Timeout      time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"twelve_data"`
	AlphaVantage struct {
		BaseURL string        `yaml:"base_url" default:"https://www.alphavantage.co"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"alpha_vantage"`
	NewsAPI struct {
		BaseURL  string        `yaml:"base_url" default:"https://newsapi.org"`
		APIKey   string        `yaml:"api_key"`
		Language string        `yaml:"language" default:"en"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"news_api"`
	GoogleNews struct {
		Enabled   bool   `yaml:"enabled" default:"true"`
		BaseURL   string `yaml:"base_url" default:"https://news.google.com"`
		UserAgent string `yaml:"user_agent" default:"Mozilla/5.0 (compatible; ChartVerdict/1.0)"`
	} `yaml:"google_news"`
	Fundamentals struct {
		CacheBackend string        `yaml:"cache_backend" default:"memory" validate:"oneof=memory redis layered"`
		StaleAfter   time.Duration `yaml:"stale_after" default:"72h" validate:"gt=0"`
		Refresh      string        `yaml:"refresh" default:"inline" validate:"oneof=inline kafka redis"`
		LockTTL      time.Duration `yaml:"lock_ttl" default:"30s"`
		WarmSymbols  []string      `yaml:"warm_symbols"`
		L1Size       int           `yaml:"l1_size" default:"1000" validate:"gte=1"`
		L1TTL        time.Duration `yaml:"l1_ttl" default:"1m"`
	} `yaml:"fundamentals"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"chartverdict"`
		Queue    struct {
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RefreshTopic string   `yaml:"refresh_topic" default:"fundamentals.refresh"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
			AutoCreate   bool          `yaml:"auto_create_topic"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"chartverdict-refresh"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fundamentals.refresh.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"chartverdict"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TWELVE_DATA_API_KEY"); ok && v != "" {
		c.TwelveData.APIKey = v
	}
	if v, ok := lookup("ALPHA_VANTAGE_API_KEY"); ok && v != "" {
		c.AlphaVantage.APIKey = v
	}
	if v, ok := lookup("NEWS_API_KEY"); ok && v != "" {
		c.NewsAPI.APIKey = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks struct tags and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Classifier.Mode {
	case ClassifierProcess:
		if c.Classifier.Command == "" {
			return fmt.Errorf("classifier.command is required in process mode")
		}
	case ClassifierRemote:
		if c.Classifier.RemoteURL == "" {
			return fmt.Errorf("classifier.remote_url is required in remote mode")
		}
	}
	if c.Fundamentals.Refresh == RefreshKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when fundamentals.refresh is kafka")
	}
	if c.Fusion.Oversold >= c.Fusion.Overbought {
		return fmt.Errorf("fusion.oversold (%v) must be below fusion.overbought (%v)", c.Fusion.Oversold, c.Fusion.Overbought)
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Fundamentals.CacheBackend == CacheRedis ||
		c.Fundamentals.CacheBackend == CacheLayered ||
		c.Fundamentals.Refresh == RefreshRedis
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
