package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the root configuration for the partywatch daemon.
	Config struct {
		Logger   LoggerConfig   `yaml:"logger"`
		LCU      LCUConfig      `yaml:"lcu"`
		Watcher  WatcherConfig  `yaml:"watcher"`
		Cache    CacheConfig    `yaml:"cache"`
		Status   StatusConfig   `yaml:"status"`
		Injector InjectorConfig `yaml:"injector"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}

	// LCUConfig describes how to reach the local client API. Port and token
	// are rediscovered by an external helper on every client restart; they
	// can also be supplied via PARTYWATCH_LCU_PORT / PARTYWATCH_LCU_TOKEN.
	LCUConfig struct {
		Port           int           `yaml:"port"`
		Token          string        `yaml:"token"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	}

	// WatcherConfig tunes the poll loops.
	WatcherConfig struct {
		PollInterval     time.Duration `yaml:"poll_interval"`
		ChatPollInterval time.Duration `yaml:"chat_poll_interval"`
		ShareMaxAge      time.Duration `yaml:"share_max_age"`
		MaxBackoff       time.Duration `yaml:"max_backoff"`
	}

	// CacheConfig selects the received-share cache backend.
	CacheConfig struct {
		Type  string           `yaml:"type"` // "memory" or "redis"
		Redis CacheRedisConfig `yaml:"redis"`
	}

	// CacheRedisConfig represents the Redis configuration for the share cache.
	CacheRedisConfig struct {
		Addr     string        `yaml:"addr"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	}

	// StatusConfig configures the optional loopback status server.
	StatusConfig struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	}

	// InjectorConfig points at the external injection helper. An empty
	// command leaves injection as a logged no-op.
	InjectorConfig struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
	}
)

// DefaultConfig returns the hardcoded defaults used when no configuration
// file is present or the one on disk is malformed.
func DefaultConfig() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// LoadConfig reads a YAML configuration file, loading a .env first if one
// exists. A missing or malformed file is not fatal: the returned config
// falls back to defaults and the error reports what went wrong.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults sets default values on any zero-valued field.
func setDefaults(cfg *Config) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "stdout"
	}
	if cfg.Logger.MaxSize == 0 {
		cfg.Logger.MaxSize = 50 // MB
	}
	if cfg.Logger.MaxBackups == 0 {
		cfg.Logger.MaxBackups = 3
	}
	if cfg.Logger.MaxAge == 0 {
		cfg.Logger.MaxAge = 7 // days
	}
	if cfg.LCU.RequestTimeout == 0 {
		cfg.LCU.RequestTimeout = 3 * time.Second
	}
	if cfg.Watcher.PollInterval == 0 {
		cfg.Watcher.PollInterval = 1500 * time.Millisecond
	}
	if cfg.Watcher.ChatPollInterval == 0 {
		cfg.Watcher.ChatPollInterval = 2 * time.Second
	}
	if cfg.Watcher.ShareMaxAge == 0 {
		cfg.Watcher.ShareMaxAge = 300 * time.Second
	}
	if cfg.Watcher.MaxBackoff == 0 {
		cfg.Watcher.MaxBackoff = 30 * time.Second
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "partywatch"
	}
	if cfg.Cache.Redis.TTL == 0 {
		cfg.Cache.Redis.TTL = 10 * time.Minute
	}
	if cfg.Status.Addr == "" {
		cfg.Status.Addr = "127.0.0.1:4600"
	}
}
