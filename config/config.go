package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quantfeed/pkg/market"

	"github.com/spf13/viper"
)

type Config struct {
	Binance  BinanceConfig  `mapstructure:"binance"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type BinanceConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ValidateSymbols bool          `mapstructure:"validate_symbols"` // drop configured symbols the exchange does not list
}

type WSConfig struct {
	URL               string        `mapstructure:"url"`                // stream base, e.g. wss://fstream.binance.com/ws
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`  // dial timeout per attempt
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`    // fixed backoff between attempts
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"` // ping period; read deadline is twice this
}

// PipelineConfig drives the buffer, flush and resample stages.
type PipelineConfig struct {
	Symbols          []string      `mapstructure:"symbols"`
	BufferCapacity   int           `mapstructure:"buffer_capacity"`   // ticks kept per symbol
	FlushInterval    time.Duration `mapstructure:"flush_interval"`    // hot buffer -> ticks table
	ResampleInterval time.Duration `mapstructure:"resample_interval"` // ticks table -> bars tables
	Timeframes       []string      `mapstructure:"timeframes"`
	StatusInterval   time.Duration `mapstructure:"status_interval"`  // buffer status log period
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"` // budget for the final drain
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // listen address for /metrics; empty disables
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	ex, _ := os.Executable()

	var paths []string
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		paths = append(paths, filepath.Join(pwd, "config"), filepath.Join(pwd, "../../config"))
	} else {
		paths = append(paths, filepath.Join(filepath.Dir(ex), "../config"), "./config")
	}

	cfg, err := LoadFrom(paths...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads config.yaml from the first matching path, applies defaults
// and environment overrides, and validates the result. A missing file is not
// an error: defaults plus environment are enough to run.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	// Support environment variables with dot notation (e.g., PIPELINE_FLUSH_INTERVAL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.rest.base_url", "https://fapi.binance.com")
	v.SetDefault("binance.rest.timeout", 10*time.Second)
	v.SetDefault("binance.rest.validate_symbols", false)
	v.SetDefault("binance.ws.url", "wss://fstream.binance.com/ws")
	v.SetDefault("binance.ws.handshake_timeout", 10*time.Second)
	v.SetDefault("binance.ws.reconnect_delay", 5*time.Second)
	v.SetDefault("binance.ws.heartbeat_interval", 20*time.Second)

	v.SetDefault("pipeline.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("pipeline.buffer_capacity", 10_000)
	v.SetDefault("pipeline.flush_interval", time.Second)
	v.SetDefault("pipeline.resample_interval", 60*time.Second)
	v.SetDefault("pipeline.timeframes", []string{"1s", "1m", "5m"})
	v.SetDefault("pipeline.status_interval", 30*time.Second)
	v.SetDefault("pipeline.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.dbname", "quantfeed")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	p := c.Pipeline
	if len(p.Symbols) == 0 {
		return errors.New("pipeline.symbols must not be empty")
	}
	if p.BufferCapacity <= 0 {
		return fmt.Errorf("pipeline.buffer_capacity must be positive, got %d", p.BufferCapacity)
	}
	if p.FlushInterval <= 0 {
		return fmt.Errorf("pipeline.flush_interval must be positive, got %s", p.FlushInterval)
	}
	if p.ResampleInterval <= 0 {
		return fmt.Errorf("pipeline.resample_interval must be positive, got %s", p.ResampleInterval)
	}
	if _, err := market.ParseTimeframes(p.Timeframes); err != nil {
		return fmt.Errorf("pipeline.timeframes: %w", err)
	}
	if c.Binance.WS.ReconnectDelay <= 0 {
		return fmt.Errorf("binance.ws.reconnect_delay must be positive, got %s", c.Binance.WS.ReconnectDelay)
	}
	if c.Binance.WS.HeartbeatInterval <= 0 {
		return fmt.Errorf("binance.ws.heartbeat_interval must be positive, got %s", c.Binance.WS.HeartbeatInterval)
	}
	return nil
}

// SymbolSet returns the configured symbols upper-cased and de-duplicated,
// in configuration order.
func (p PipelineConfig) SymbolSet() []string {
	seen := make(map[string]bool, len(p.Symbols))
	out := make([]string, 0, len(p.Symbols))
	for _, s := range p.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
