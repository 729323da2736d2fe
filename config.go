package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	backendMemory = "memory"
	backendSQLite = "sqlite"
)

// Config is read from RELAY_* environment variables first; command-line
// flags override them.
type Config struct {
	ListenAddr     string        `env:"RELAY_ADDR"`
	Port           string        `env:"PORT"`
	BasePath       string        `env:"RELAY_BASE_PATH" envDefault:"/api/chat"`
	DefaultWebhook string        `env:"GOOGLE_CHAT_WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"RELAY_WEBHOOK_TIMEOUT" envDefault:"5s"`
	LogBackend     string        `env:"RELAY_LOG_BACKEND" envDefault:"memory"`
	DBPath         string        `env:"RELAY_DB" envDefault:"withmystar_logs.db"`
	PolicyPath     string        `env:"RELAY_POLICY"`
	LogDenials     bool          `env:"RELAY_LOG_DENIALS"`
	LogLevel       string        `env:"RELAY_LOG_LEVEL" envDefault:"info"`
	Version        string        `env:"RELAY_VERSION" envDefault:"1.0.0"`
}

func LoadConfig(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("chatrelay", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "addr", defaultAddr(cfg), "Listen address")
	fs.StringVar(&cfg.BasePath, "base-path", cfg.BasePath, "Path prefix for the relay endpoints")
	fs.StringVar(&cfg.DefaultWebhook, "webhook", cfg.DefaultWebhook, "Webhook used when a request names none")
	fs.DurationVar(&cfg.WebhookTimeout, "webhook-timeout", cfg.WebhookTimeout, "Timeout for the outbound webhook call")
	fs.StringVar(&cfg.LogBackend, "log-backend", cfg.LogBackend, "Relay log backend: memory or sqlite")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (sqlite backend)")
	fs.StringVar(&cfg.PolicyPath, "policy", cfg.PolicyPath, "YAML file with caller roles and permissions")
	fs.BoolVar(&cfg.LogDenials, "log-denials", cfg.LogDenials, "Also record role denials in the relay log")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.LogBackend != backendMemory && cfg.LogBackend != backendSQLite {
		return Config{}, fmt.Errorf("unknown log backend %q", cfg.LogBackend)
	}
	return cfg, nil
}

func defaultAddr(cfg Config) string {
	if cfg.ListenAddr != "" {
		return cfg.ListenAddr
	}
	// Railway, Render, etc. set PORT
	if cfg.Port != "" {
		return ":" + cfg.Port
	}
	return ":5000"
}
