package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	AutoMigrate bool          `env:"AUTO_MIGRATE"`
	Advisor     string        `env:"ADVISOR" envDefault:"table"`
	LLMModel    string        `env:"LLM_MODEL"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"40s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	NoColor     string        `env:"NO_COLOR"`
	// JudgeOnWrite grades non-table advice as soon as it is logged.
	JudgeOnWrite bool `env:"JUDGE_ON_WRITE" envDefault:"true"`
}

// loadConfig reads .env if present, then the process environment.
func loadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Advisor = strings.ToLower(strings.TrimSpace(cfg.Advisor))
	return cfg, nil
}

func newLogger(cfg Config, prefix string) *log.Logger {
	logger := log.NewWithOptions(logOutput, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          prefix,
	})
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
