// Package config загружает настройки сервера из .env и переменных окружения
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DBFileName - имя файла базы в DATA_DIR
const DBFileName = "authd.db"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DataDir string
	// Path переопределяет DataDir/authd.db, допускается ":memory:"
	Path string
}

type AuthConfig struct {
	// StartupPassword - временный пароль admin при первом запуске.
	// Пустой - генерируется случайный
	StartupPassword string
	LoginRate       int
	LoginRateWindow time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
			Path:    getEnv("DB_PATH", ""),
		},
		Auth: AuthConfig{
			StartupPassword: getEnv("STARTUP_PASSWORD", ""),
			LoginRate:       getEnvAsInt("LOGIN_RATE", 10),
			LoginRateWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that can also be set by flags after Load
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Server.Port)
	}
	if _, err := ParseLevel(c.Server.LogLevel); err != nil {
		return err
	}
	if c.Auth.LoginRate < 0 {
		return errors.New("LOGIN_RATE must not be negative")
	}
	if c.Auth.LoginRate > 0 && c.Auth.LoginRateWindow <= 0 {
		return errors.New("LOGIN_RATE_WINDOW must be positive")
	}
	if c.Database.Path == "" && c.Database.DataDir == "" {
		return errors.New("DATA_DIR or DB_PATH is required")
	}
	return nil
}

// DSN returns the database path: DB_PATH if set, otherwise the file in DATA_DIR
func (c *DatabaseConfig) DSN() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(c.DataDir, DBFileName)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return ":" + c.Port
}

// IsProduction reports whether ENV is production
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// NewLogger создает logger: JSON в production, text иначе
func (c *ServerConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel parses debug, info, warn or error
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
