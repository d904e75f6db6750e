// Package config holds daemon configuration with file and environment
// overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir string `mapstructure:"data_dir"`

	HTTP  HTTPConfig  `mapstructure:"http"`
	Query QueryConfig `mapstructure:"query"`
	Log   LogConfig   `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type QueryConfig struct {
	// MaxConcurrent bounds concurrent query executions; excess requests
	// are rejected rather than queued.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// MaxLimit clamps the per-query result limit requested by clients.
	MaxLimit int `mapstructure:"max_limit"`
	// PlanCacheSize is the compiled-query LRU capacity.
	PlanCacheSize int `mapstructure:"plan_cache_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		HTTP: HTTPConfig{
			Addr:            ":8617",
			ShutdownTimeout: 10 * time.Second,
		},
		Query: QueryConfig{
			MaxConcurrent: 100,
			MaxLimit:      10000,
			PlanCacheSize: 512,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load layers an optional config file and ZEROTABLE_-prefixed environment
// variables (ZEROTABLE_HTTP_ADDR -> http.addr) over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("http.addr", defaults.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", defaults.HTTP.ShutdownTimeout)
	v.SetDefault("query.max_concurrent", defaults.Query.MaxConcurrent)
	v.SetDefault("query.max_limit", defaults.Query.MaxLimit)
	v.SetDefault("query.plan_cache_size", defaults.Query.PlanCacheSize)
	v.SetDefault("log.level", defaults.Log.Level)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("ZEROTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
