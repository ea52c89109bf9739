// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/caarlos0/env/v11"
)

// DefaultAllowedOrigins are the browser origins the portfolio site is served from.
var DefaultAllowedOrigins = []string{
	"http://localhost:8080",
	"http://localhost:3000",
	"https://bharathithanikonda.dev",
	"https://www.bharathithanikonda.dev",
	"https://bharathithanikondaportfolio.netlify.app",
}

// Config holds all application configuration.
type Config struct {
	Port           string   `env:"PORT" envDefault:"3001"`
	FrontendURL    string   `env:"FRONTEND_URL"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	PortfolioFile  string   `env:"PORTFOLIO_FILE"`
	GRPCHealthPort string   `env:"GRPC_HEALTH_PORT"`

	Gemini    GeminiConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
	Exchange  ExchangeConfig
}

// GeminiConfig configures the model provider.
type GeminiConfig struct {
	APIKey          string  `env:"GEMINI_API_KEY"`
	BaseURL         string  `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Model           string  `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	Temperature     float64 `env:"GEMINI_TEMPERATURE" envDefault:"0.7"`
	MaxOutputTokens int     `env:"GEMINI_MAX_OUTPUT_TOKENS" envDefault:"512"`
}

// ChatConfig bounds each chat exchange.
type ChatConfig struct {
	Timeout       time.Duration `env:"CHAT_TIMEOUT" envDefault:"30s"`
	HistoryWindow int           `env:"HISTORY_WINDOW" envDefault:"5"`
}

// RateLimitConfig controls per-client and global request admission.
type RateLimitConfig struct {
	Requests   int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	Window     time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	MaxClients int           `env:"RATE_LIMIT_MAX_CLIENTS" envDefault:"10000"`

	// GlobalRPS caps provider calls across all clients. Zero disables it.
	GlobalRPS   float64 `env:"GLOBAL_REQUESTS_PER_SECOND" envDefault:"0"`
	GlobalBurst int     `env:"GLOBAL_BURST" envDefault:"10"`
}

// ExchangeConfig controls the exchange log.
type ExchangeConfig struct {
	Enabled   bool          `env:"EXCHANGE_LOG_ENABLED" envDefault:"true"`
	DBPath    string        `env:"EXCHANGE_DB_PATH" envDefault:"./data/exchanges.db"`
	Retention time.Duration `env:"EXCHANGE_RETENTION" envDefault:"720h"`
	QueueSize int           `env:"EXCHANGE_QUEUE_SIZE" envDefault:"1000"`
}

// Generation returns the per-call model parameters. The configured
// temperature is always passed through, including zero.
func (g GeminiConfig) Generation() domain.GenerationConfig {
	return domain.GenerationConfig{
		Model:           g.Model,
		Temperature:     domain.Float64(g.Temperature),
		MaxOutputTokens: g.MaxOutputTokens,
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	cfg.Gemini.APIKey = strings.TrimSpace(cfg.Gemini.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set. A missing
// GEMINI_API_KEY is allowed: chat requests then fail with a configuration error.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be between 0 and 2")
	}
	if c.Gemini.MaxOutputTokens <= 0 {
		return fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be > 0")
	}
	if c.Chat.Timeout <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT must be > 0")
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.RateLimit.MaxClients <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_CLIENTS must be > 0")
	}
	if c.RateLimit.GlobalRPS < 0 {
		return fmt.Errorf("GLOBAL_REQUESTS_PER_SECOND cannot be negative")
	}
	if c.RateLimit.GlobalRPS > 0 && c.RateLimit.GlobalBurst <= 0 {
		return fmt.Errorf("GLOBAL_BURST must be > 0 when GLOBAL_REQUESTS_PER_SECOND is set")
	}
	if c.Exchange.Enabled {
		if c.Exchange.DBPath == "" {
			return fmt.Errorf("EXCHANGE_DB_PATH cannot be empty")
		}
		if c.Exchange.QueueSize <= 0 {
			return fmt.Errorf("EXCHANGE_QUEUE_SIZE must be > 0")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a valid level", s)
	}
	return level, nil
}

func cleanOrigins(origins []string) []string {
	out := origins[:0]
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
