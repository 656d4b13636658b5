package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds client configuration
type Config struct {
	API     APIConfig
	Session SessionConfig
	Storage StorageConfig
	Google  GoogleConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	// Lifetime is the local credential window; the token is treated as
	// expired this long after issuance regardless of what the server says.
	Lifetime time.Duration
	// CheckInterval is how often the background expiry check runs.
	CheckInterval time.Duration
	// VerifyRPS/VerifyBurst throttle the foreground re-verification calls.
	VerifyRPS   float64
	VerifyBurst int
}

type StorageConfig struct {
	Backend string // "file" | "redis"
	Path    string
	Redis   RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GoogleConfig struct {
	// ClientID enables local pre-verification of Google ID tokens when set.
	ClientID string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("HTTP_TIMEOUT", 15)
	viper.SetDefault("SESSION_LIFETIME", 30)
	viper.SetDefault("SESSION_CHECK_INTERVAL", 60)
	viper.SetDefault("SESSION_VERIFY_RPS", 0.2)
	viper.SetDefault("SESSION_VERIFY_BURST", 1)
	viper.SetDefault("STORAGE_BACKEND", "file")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		API: APIConfig{
			BaseURL: viper.GetString("LIFERANK_API_URL"),
			Timeout: time.Duration(viper.GetInt("HTTP_TIMEOUT")) * time.Second,
		},
		Session: SessionConfig{
			Lifetime:      time.Duration(viper.GetInt("SESSION_LIFETIME")) * time.Minute,
			CheckInterval: time.Duration(viper.GetInt("SESSION_CHECK_INTERVAL")) * time.Second,
			VerifyRPS:     viper.GetFloat64("SESSION_VERIFY_RPS"),
			VerifyBurst:   viper.GetInt("SESSION_VERIFY_BURST"),
		},
		Storage: StorageConfig{
			Backend: viper.GetString("STORAGE_BACKEND"),
			Path:    viper.GetString("STORAGE_PATH"),
			Redis: RedisConfig{
				Host:     viper.GetString("REDIS_HOST"),
				Port:     viper.GetString("REDIS_PORT"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       viper.GetInt("REDIS_DB"),
			},
		},
		Google: GoogleConfig{
			ClientID: viper.GetString("GOOGLE_CLIENT_ID"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Storage.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for storage path: %w", err)
		}
		cfg.Storage.Path = home + "/.liferank/session.json"
	}

	// Basic validation
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("LIFERANK_API_URL is required")
	}
	switch cfg.Storage.Backend {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "redis" && cfg.Storage.Redis.Host == "" {
		return nil, fmt.Errorf("REDIS_HOST is required for the redis storage backend")
	}

	return cfg, nil
}
