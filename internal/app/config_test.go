package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "postgres://localhost/doce",
			JWT:         JWTConfig{Secret: "0123456789abcdef"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL"},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "DOCE_JWT_SECRET"},
		{name: "telegram without chat", mutate: func(c *Config) { c.Telegram.Token = "123:abc" }, wantErr: "chat id"},
		{name: "telegram with chat", mutate: func(c *Config) {
			c.Telegram.Token = "123:abc"
			c.Telegram.ChatID = -100123
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://railway/doce")
	t.Setenv("REDIS_URL", "redis://railway:6379/0")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://railway/doce", cfg.DatabaseURL)
	assert.Equal(t, "redis://railway:6379/0", cfg.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:8081", DatabaseURL: "postgres://explicit/doce"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/doce", cfg.DatabaseURL, "explicit settings win")
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr)
}
