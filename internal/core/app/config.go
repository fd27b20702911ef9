package app

import (
	"os"
	"strconv"
	"time"

	"github.com/antistereov/singularity-core/pkg/httpx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
)

type Config struct {
	Issuer string // issuer claim for all tokens

	DatabaseFile  string // path to the SQLite database file
	RedisAddr     string // revocation cache address
	RedisPassword string
	RedisDB       int

	MasterKeyPath string // encrypts signing secrets at rest; empty = ephemeral (dev only)
	PepperFile    string // password hashing pepper, generated on first run

	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	SessionTTL           time.Duration
	StepUpTTL            time.Duration
	EmailTTL             time.Duration
	InvitationTTL        time.Duration
	SecretGracePeriod    time.Duration // how long past RefreshTTL superseded secrets stay verifiable
	RotationInterval     time.Duration // 0 disables scheduled rotation
	HousekeepingInterval time.Duration
	SessionIdleAfter     time.Duration

	Carriage     httpx.CarriagePreference // cookie (default) or header
	CookieName   string
	CookieSecure bool

	Env                 string
	LogLevel            string
	LogFormat           string
	Port                int
	ShutdownGracePeriod time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("CORE_ISSUER", "singularity-core"),

		DatabaseFile:  getEnvOrDefault("CORE_DATABASE_FILE", "core.db"),
		RedisAddr:     getEnvOrDefault("CORE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("CORE_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("CORE_REDIS_DB", 0),

		MasterKeyPath: os.Getenv("CORE_MASTER_KEY_PATH"),
		PepperFile:    getEnvOrDefault("CORE_PEPPER_FILE", "pepper"),

		AccessTTL:            getEnvDurationOrDefault("CORE_ACCESS_TTL", tokenx.DefaultAccessTTL),
		RefreshTTL:           getEnvDurationOrDefault("CORE_REFRESH_TTL", tokenx.DefaultRefreshTTL),
		SessionTTL:           getEnvDurationOrDefault("CORE_SESSION_TTL", tokenx.DefaultSessionTTL),
		StepUpTTL:            getEnvDurationOrDefault("CORE_STEP_UP_TTL", tokenx.DefaultStepUpTTL),
		EmailTTL:             getEnvDurationOrDefault("CORE_EMAIL_TTL", tokenx.DefaultEmailVerificationTTL),
		InvitationTTL:        getEnvDurationOrDefault("CORE_INVITATION_TTL", tokenx.DefaultInvitationTTL),
		SecretGracePeriod:    getEnvDurationOrDefault("CORE_SECRET_GRACE_PERIOD", 24*time.Hour),
		RotationInterval:     getEnvDurationOrDefault("CORE_ROTATION_INTERVAL", 0),
		HousekeepingInterval: getEnvDurationOrDefault("CORE_HOUSEKEEPING_INTERVAL", time.Hour),
		SessionIdleAfter:     getEnvDurationOrDefault("CORE_SESSION_IDLE_AFTER", 0),

		CookieName:   getEnvOrDefault("CORE_COOKIE_NAME", httpx.DefaultAccessCookie),
		CookieSecure: getEnvOrDefault("CORE_COOKIE_SECURE", "true") != "false",

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if getEnvOrDefault("CORE_TOKEN_CARRIAGE", "cookie") == "header" {
		cfg.Carriage = httpx.CarriageHeader
	} else {
		cfg.Carriage = httpx.CarriageCookie
	}

	// Sessions idle longer than the refresh TTL cannot come back anyway.
	if cfg.SessionIdleAfter <= 0 {
		cfg.SessionIdleAfter = cfg.RefreshTTL
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
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
