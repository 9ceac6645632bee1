package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (DOCE_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (DOCE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL      string        `default:"" usage:"Redis URL for cart sessions; carts stay in memory when empty" flag:"redis-url"`
	ImageBaseURL  string        `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	WhatsAppPhone string        `default:"5511976824710" usage:"Shop WhatsApp number, digits only" flag:"whatsapp-phone"`
	CartTTL       time.Duration `default:"72h" usage:"Idle time after which a cart is dropped" flag:"cart-ttl"`
	JWT           JWTConfig
	Telegram      TelegramConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// JWTConfig controls session tokens.
type JWTConfig struct {
	Secret string        `usage:"HMAC secret for session tokens, at least 16 bytes (DOCE_JWT_SECRET)" flag:"jwt-secret"`
	TTL    time.Duration `default:"168h" usage:"Session lifetime" flag:"jwt-ttl"`
}

// TelegramConfig enables new order notifications when Token is set.
type TelegramConfig struct {
	Token   string        `default:"" usage:"Telegram bot token" flag:"telegram-token"`
	ChatID  int64         `default:"0" usage:"Telegram chat receiving order notifications" flag:"telegram-chat-id"`
	Timeout time.Duration `default:"5s" usage:"Bound on a single Telegram API call" flag:"telegram-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiters.
type RateLimitConfig struct {
	Max             int           `default:"100" usage:"Max requests per window"`
	Window          time.Duration `default:"1m"  usage:"Rate limit window duration"`
	SensitiveMax    int           `default:"10" usage:"Max sign-in, sign-up and redemption requests per window" flag:"sensitive-max"`
	SensitiveWindow time.Duration `default:"1m" usage:"Window for the sensitive limit" flag:"sensitive-window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string      `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool          `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
	MaxAge           time.Duration `default:"24h" usage:"Preflight cache duration" flag:"cors-max-age"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
	SessionSweep    time.Duration `default:"1h"  usage:"Interval between expired session cleanups" flag:"session-sweep"`
}

// LoadConfig reads .env, then environment variables and YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DOCE",
		Files:     []string{"config.yaml", "/etc/doce/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set DOCE_DATABASE_URL or DATABASE_URL")
	case len(c.JWT.Secret) < 16:
		return errors.New("session secret is required: set DOCE_JWT_SECRET to at least 16 bytes")
	case c.Telegram.Token != "" && c.Telegram.ChatID == 0:
		return errors.New("telegram chat id is required when a bot token is set")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's DOCE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
