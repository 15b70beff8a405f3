package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/storelink/kioskd/pkg/jwtx"
)

type Config struct {
	Issuer    string // Issuer claim for tokens (default: kioskd)
	JWTSecret string // Required: HS256 signing secret, at least 32 bytes

	AccessTokenTTL       time.Duration // Account access-token lifetime (default: 30m)
	DeviceTokenTTL       time.Duration // Device token lifetime (default: 4320h / 180 days)
	RefreshCredentialTTL time.Duration // Refresh credential lifetime (default: 168h / 7 days)

	DatabaseFile string // Path to SQLite database file (default: ./kioskd.db)

	// AdminEmail/AdminPassword seed a first admin account when the
	// accounts table is empty. Both must be set for seeding to happen.
	AdminEmail    string
	AdminPassword string

	AllowedOrigins []string // Websocket cross-origin host patterns

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-credential sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:    getEnvOrDefault("KIOSKD_ISSUER", "kioskd"),
		JWTSecret: os.Getenv("KIOSKD_JWT_SECRET"),

		AccessTokenTTL:       getEnvDurationOrDefault("KIOSKD_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		DeviceTokenTTL:       getEnvDurationOrDefault("KIOSKD_DEVICE_TOKEN_TTL", jwtx.DefaultDeviceTokenTTL),
		RefreshCredentialTTL: getEnvDurationOrDefault("KIOSKD_REFRESH_TTL", jwtx.DefaultRefreshCredentialTTL),

		DatabaseFile: getEnvOrDefault("KIOSKD_DATABASE_FILE", "kioskd.db"),

		AdminEmail:    os.Getenv("KIOSKD_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("KIOSKD_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	if origins := os.Getenv("KIOSKD_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
