package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"threegen/pkg/logger"
)

type Config struct {
	HTTPPort        string
	Env             string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	DB              DBConfig
	Supabase        SupabaseConfig
	Device          DeviceConfig
	Sync            SyncConfig
}

type DBConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SupabaseConfig struct {
	URL             string
	PublishableKey  string
	JWTSecret       string
	AuthTimeout     time.Duration
	SessionCacheTTL time.Duration
	SkipAuth        bool
	MockUserID      string
	MockUserEmail   string
	MockUserName    string
	MockUserAvatar  string
}

// DeviceConfig is read by the threegen CLI, which owns the local store.
type DeviceConfig struct {
	LocalDBPath    string
	RemoteURL      string
	AuthToken      string
	AuthTokenFile  string
	RequestTimeout time.Duration
}

type SyncConfig struct {
	PeriodicInterval       time.Duration
	RetryBaseDelay         time.Duration
	RetryMaxDelay          time.Duration
	MaxAttempts            int
	ConstraintPollInterval time.Duration
	MinBatteryPercent      int
	RunTimeout             time.Duration
}

func Load(log logger.Logger) (Config, error) {
	err := loadDotEnv(log)
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		CORSOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second),
		DB: DBConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "threegen"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Supabase: SupabaseConfig{
			URL:             getEnv("SUPABASE_URL", ""),
			PublishableKey:  getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
			JWTSecret:       getEnv("SUPABASE_JWT_SECRET", ""),
			AuthTimeout:     getEnvDuration("SUPABASE_AUTH_TIMEOUT", 5*time.Second),
			SessionCacheTTL: getEnvDuration("SUPABASE_SESSION_CACHE_TTL", time.Minute),
			SkipAuth:        getEnvBool("AUTH_SKIP", false),
			MockUserID:      getEnv("AUTH_MOCK_USER_ID", "00000000-0000-0000-0000-000000000001"),
			MockUserEmail:   getEnv("AUTH_MOCK_USER_EMAIL", ""),
			MockUserName:    getEnv("AUTH_MOCK_USER_NAME", ""),
			MockUserAvatar:  getEnv("AUTH_MOCK_USER_AVATAR_URL", ""),
		},
		Device: DeviceConfig{
			LocalDBPath:    getEnv("THREEGEN_DB_PATH", "threegen.db"),
			RemoteURL:      getEnv("THREEGEN_REMOTE_URL", "http://localhost:8080"),
			AuthToken:      getEnv("THREEGEN_AUTH_TOKEN", ""),
			AuthTokenFile:  getEnv("THREEGEN_AUTH_TOKEN_FILE", ""),
			RequestTimeout: getEnvDuration("THREEGEN_REQUEST_TIMEOUT", 15*time.Second),
		},
		Sync: SyncConfig{
			PeriodicInterval:       getEnvDuration("SYNC_PERIODIC_INTERVAL", 6*time.Hour),
			RetryBaseDelay:         getEnvDuration("SYNC_RETRY_BASE_DELAY", 30*time.Second),
			RetryMaxDelay:          getEnvDuration("SYNC_RETRY_MAX_DELAY", 30*time.Minute),
			MaxAttempts:            getEnvInt("SYNC_MAX_ATTEMPTS", 5),
			ConstraintPollInterval: getEnvDuration("SYNC_CONSTRAINT_POLL_INTERVAL", time.Minute),
			MinBatteryPercent:      getEnvInt("SYNC_MIN_BATTERY_PERCENT", 15),
			RunTimeout:             getEnvDuration("SYNC_RUN_TIMEOUT", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// AuthMode names how bearer tokens are checked: "skip" for the mock user,
// "jwt" for local verification, "supabase" for the auth server lookup.
func (c SupabaseConfig) AuthMode() string {
	switch {
	case c.SkipAuth:
		return "skip"
	case strings.TrimSpace(c.JWTSecret) != "":
		return "jwt"
	default:
		return "supabase"
	}
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
