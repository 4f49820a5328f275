package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	// optional quiz definition cache
	RedisAddr    string
	QuizCacheTTL time.Duration

	// graded-event fan-out; empty URLs disable the sink
	AMQPURL         string
	AMQPExchange    string
	NotifyURL       string
	NotifyQueueSize int
	NotifyTimeout   time.Duration
	EnrollmentURL   string // empty reads course_students locally

	// client credentials for calls to other platform services
	ServiceTokenURL     string
	ServiceClientID     string
	ServiceClientSecret string

	SweepInterval time.Duration
	SweepBatch    int

	AuthHMACSecret  string
	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeOffline)))
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		SiteID:   envOr("SITE_ID", "local"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", "file:assess.db?cache=shared"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		QuizCacheTTL: envDuration("QUIZ_CACHE_TTL", 5*time.Minute),

		AMQPURL:         os.Getenv("AMQP_URL"),
		AMQPExchange:    envOr("AMQP_EXCHANGE", "assessment.events"),
		NotifyURL:       os.Getenv("NOTIFY_URL"),
		NotifyQueueSize: envInt("NOTIFY_QUEUE", 256),
		NotifyTimeout:   envDuration("NOTIFY_TIMEOUT", 5*time.Second),
		EnrollmentURL:   os.Getenv("ENROLLMENT_URL"),

		ServiceTokenURL:     os.Getenv("SERVICE_TOKEN_URL"),
		ServiceClientID:     os.Getenv("SERVICE_CLIENT_ID"),
		ServiceClientSecret: os.Getenv("SERVICE_CLIENT_SECRET"),

		SweepInterval: envDuration("SWEEP_INTERVAL", 30*time.Second),
		SweepBatch:    envInt("SWEEP_BATCH", 100),

		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://lms.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010,http://localhost:3020"),
	}
}

// CORSOrigins picks the allow-list for the running mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
