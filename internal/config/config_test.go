package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{
		"DATABASE_URL": "postgres://localhost/fireproof",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, int64(10<<20), cfg.PhotoMaxBytes)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Len(t, cfg.JWTSecret, minSecretLength, "development falls back to a generated secret")
	assert.True(t, cfg.IsDevelopment())
}

func TestFromViper_RequiresDatabaseURL(t *testing.T) {
	_, err := fromViper(newTestViper(nil))
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestFromViper_ProductionRequiresSecrets(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{
		"APP_ENV":      "production",
		"DATABASE_URL": "postgres://db/fireproof",
		"JWT_SECRET":   "short",
	}))
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = fromViper(newTestViper(map[string]any{
		"APP_ENV":      "production",
		"DATABASE_URL": "postgres://db/fireproof",
		"JWT_SECRET":   "0123456789abcdef0123456789abcdef",
	}))
	assert.ErrorContains(t, err, "SIGNING_KEY")
}

func TestFromViper_AllowedOriginsFromString(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{
		"DATABASE_URL":    "postgres://localhost/fireproof",
		"ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
