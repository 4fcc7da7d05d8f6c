package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every process-level setting read at startup.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Identity  IdentityConfig
	Audit     AuditConfig
	Mirror    MirrorConfig
	Log       LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	APIToken        string
	MaxPayloadBytes int64
	ShutdownTimeout time.Duration
	// AllowedOrigins is the browser origin allowlist. Requests without an
	// Origin header are not affected.
	AllowedOrigins []string
}

// PostgresConfig selects the PostgreSQL stores when URL is set.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// OpTimeout bounds every store call issued outside a transaction.
	OpTimeout time.Duration
}

// RedisConfig selects the Redis rate-limit backend when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RateLimitConfig struct {
	Window time.Duration
	Max    int
	// CleanupSampleRate is the probability that a shared-backend check also
	// deletes expired rows.
	CleanupSampleRate float64
	// BackendTimeout bounds each shared-backend call before falling back to the
	// local store.
	BackendTimeout   time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

type IdentityConfig struct {
	EnforceRBAC   bool
	UserJWTSecret string
	// BootstrapProfiles seeds the in-memory profile store as userID:role pairs.
	BootstrapProfiles []string
}

type AuditConfig struct {
	BufferSize       int
	FailureThreshold int
	Cooldown         time.Duration
}

type MirrorConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("LUMINE_ADDR", ":8080"),
			APIToken:        os.Getenv("API_TOKEN"),
			MaxPayloadBytes: int64(envInt("MAX_PAYLOAD_BYTES", 4*1024*1024)),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  splitCSV(envString("ORIGINS_ALLOWLIST", "https://lumine-webapp.vercel.app")),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			OpTimeout:       envDuration("DB_OP_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Window:            time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
			Max:               envInt("RATE_LIMIT_MAX", 30),
			CleanupSampleRate: envFloat("RATE_LIMIT_CLEANUP_SAMPLE_RATE", 0.01),
			BackendTimeout:    envDuration("RATE_LIMIT_BACKEND_TIMEOUT", 300*time.Millisecond),
			FailureThreshold:  envInt("RATE_LIMIT_BREAKER_THRESHOLD", 5),
			Cooldown:          envDuration("RATE_LIMIT_BREAKER_COOLDOWN", 30*time.Second),
		},
		Identity: IdentityConfig{
			EnforceRBAC:       envBool("ENFORCE_RBAC", false),
			UserJWTSecret:     os.Getenv("USER_JWT_SECRET"),
			BootstrapProfiles: splitCSV(os.Getenv("BOOTSTRAP_PROFILES")),
		},
		Audit: AuditConfig{
			BufferSize:       envInt("AUDIT_BUFFER_SIZE", 256),
			FailureThreshold: envInt("AUDIT_BREAKER_THRESHOLD", 5),
			Cooldown:         envDuration("AUDIT_BREAKER_COOLDOWN", 30*time.Second),
		},
		Mirror: MirrorConfig{
			Enabled: envBool("MIRROR_ENABLED", false),
			Brokers: splitCSV(os.Getenv("MIRROR_BROKERS")),
			Topic:   envString("MIRROR_TOPIC", "lumine.stage-events"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && v >= 0 && v <= 1 {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

// envDuration accepts Go duration strings ("2s", "500ms").
func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
