package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/random"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const minSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	Environment string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	// Database configuration
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`

	// Auth configuration
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	JWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`

	// Redis configuration
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// MinIO configuration
	MinioEndpoint  string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool          `mapstructure:"MINIO_USE_SSL"`
	MinioBucket    string        `mapstructure:"MINIO_BUCKET"`
	PhotoMaxBytes  int64         `mapstructure:"PHOTO_MAX_BYTES"`
	PhotoURLTTL    time.Duration `mapstructure:"PHOTO_URL_TTL"`

	// Inspection signatures
	SigningKey string `mapstructure:"SIGNING_KEY"`

	// CORS configuration
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	// Background processing
	SchedulerEnabled        bool `mapstructure:"SCHEDULER_ENABLED"`
	WorkerConcurrency       int  `mapstructure:"WORKER_CONCURRENCY"`
	InspectionLookaheadDays int  `mapstructure:"INSPECTION_LOOKAHEAD_DAYS"`
}

// Load reads configuration from .env, an optional config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// ALLOWED_ORIGINS arrives as a comma separated string from the environment
	cfg.AllowedOrigins = splitList(strings.Join(cfg.AllowedOrigins, ","))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "fireproof")
	v.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("AUTH_JWKS_URL", "")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "fireproof-photos")
	v.SetDefault("PHOTO_MAX_BYTES", 10<<20)
	v.SetDefault("PHOTO_URL_TTL", 15*time.Minute)

	v.SetDefault("SIGNING_KEY", "")

	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("INSPECTION_LOOKAHEAD_DAYS", 14)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if c.IsProduction() {
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minSecretLength)
		}
		if len(c.SigningKey) < minSecretLength {
			return fmt.Errorf("SIGNING_KEY must be at least %d bytes in production", minSecretLength)
		}
	}

	if c.JWTSecret == "" {
		c.JWTSecret = random.String(minSecretLength)
		logrus.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}
	if c.SigningKey == "" {
		c.SigningKey = random.String(minSecretLength)
		logrus.Warn("SIGNING_KEY not set, using a generated key; stored signatures will not verify after a restart")
	}

	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 4
	}
	if c.PhotoMaxBytes <= 0 {
		c.PhotoMaxBytes = 10 << 20
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
