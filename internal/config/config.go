package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	StorageType     string
	DatabasePath    string
	DatabaseURL     string
	MigrationsPath  string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SessionSecret   string
	SessionDuration time.Duration
	TrustedProxies  []string
	LogLevel        string
	LogFormat       string
	AWSRegion       string
	SESFromEmail    string
	SESFromName     string
	AppBaseURL      string
}

// DefaultEnvFile is read when present in the working directory
const DefaultEnvFile = ".env"

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile reads configuration from the environment and the given env file.
// A missing file is not an error; environment variables win over the file.
func LoadFile(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return &Config{
		ServerPort:      v.GetString("PORT"),
		StorageType:     v.GetString("STORAGE_TYPE"),
		DatabasePath:    v.GetString("DB_PATH"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		MigrationsPath:  v.GetString("MIGRATIONS_PATH"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		SessionDuration: v.GetDuration("SESSION_DURATION"),
		TrustedProxies:  splitList(v.GetString("TRUSTED_PROXIES")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		AWSRegion:       v.GetString("AWS_REGION"),
		SESFromEmail:    v.GetString("SES_FROM_EMAIL"),
		SESFromName:     v.GetString("SES_FROM_NAME"),
		AppBaseURL:      v.GetString("APP_BASE_URL"),
	}, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./intan.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "./migrations")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_DURATION", 24*time.Hour)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("SES_FROM_NAME", "Intan Fractions")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
}

// splitList splits a comma-separated value, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
