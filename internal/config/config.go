package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	Admin  AdminConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	TrustedProxies []string
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

type StoreConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	SessionTTL        time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	PasswordMinLength int
	SweepInterval     time.Duration
}

// AdminConfig seeds a bootstrap administrator account at startup.
// Both fields empty means no account is seeded.
type AdminConfig struct {
	Email    string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitAndTrim(getEnv("TRUSTED_PROXIES", "")),
			AuthRateLimit:  getEnvAsInt("AUTH_RATE_LIMIT", 10),
			AuthRateWindow: getEnvAsDuration("AUTH_RATE_WINDOW", 1*time.Minute),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			DSN:             getEnv("STORE_DSN", "file:gatehouse.db"),
			MaxOpenConns:    getEnvAsInt("STORE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("STORE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("STORE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			MaxFailedAttempts: getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			LockoutDuration:   getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			PasswordMinLength: getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
			SweepInterval:     getEnvAsDuration("SESSION_SWEEP_INTERVAL", 1*time.Hour),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if cfg.Store.Driver == "" {
		return nil, fmt.Errorf("STORE_DRIVER is required")
	}
	if cfg.Store.DSN == "" {
		return nil, fmt.Errorf("STORE_DSN is required")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.Auth.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("MAX_FAILED_ATTEMPTS must be at least 1")
	}
	if cfg.Auth.LockoutDuration <= 0 {
		return nil, fmt.Errorf("LOCKOUT_DURATION must be positive")
	}

	if (cfg.Admin.Email == "") != (cfg.Admin.Password == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if cfg.Admin.Password != "" {
		if err := validateAdminPassword(cfg.Admin.Password, env); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// validateAdminPassword enforces minimum strength for the seeded admin credential
func validateAdminPassword(password, env string) error {
	minLength := 8
	if env == "production" {
		minLength = 12
	}

	if len(password) < minLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters in %s environment (got %d)",
			minLength, env, len(password))
	}

	weakPasswords := []string{
		"password", "passw0rd", "12345678", "changeme",
		"admin123", "letmein1", "qwerty123",
	}

	passwordLower := strings.ToLower(password)
	for _, weak := range weakPasswords {
		if passwordLower == weak {
			return fmt.Errorf("ADMIN_PASSWORD cannot be a common weak value")
		}
	}

	return nil
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

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		return splitAndTrim(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
