package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	Port        int
	StoreDriver string
	DBURL       string

	MongoURI string
	MongoDB  string

	JWTSecret  string
	SessionTTL time.Duration

	Search SearchConfig
	Redis  RedisConfig
	Mail   MailConfig
	S3     S3Config

	LogLevel           string
	OTLPEndpoint       string
	OTLPInsecure       bool
	TraceSampleRatio   float64
	CORSAllowedOrigins []string
	AuthRatePerMinute  int

	ReindexInterval time.Duration
	WorkerPort      int
}

type SearchConfig struct {
	Node     string
	Username string
	Password string
	Index    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	Driver       string
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	ResendAPIKey string
}

type S3Config struct {
	Bucket        string
	PublicBaseURL string
	Region        string
	EndpointURL   string
	AccessKeyID   string
	SecretKey     string
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func Load() Config {
	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DBURL:       buildDBURL(),

		MongoURI: getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGODB_DB", "storefront"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 24*7)) * time.Hour,

		Search: SearchConfig{
			Node:     getEnv("ELASTICSEARCH_NODE", "http://127.0.0.1:9200"),
			Username: getEnv("ELASTICSEARCH_USERNAME", ""),
			Password: getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:    getEnv("ELASTICSEARCH_INDEX", "products"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getEnv("MAIL_DRIVER", "log")),
			From:         getEnv("MAIL_FROM", "Storefront <no-reply@storefront.local>"),
			SMTPHost:     getEnv("SMTP_HOST", "127.0.0.1"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		S3: S3Config{
			Bucket:        getEnv("S3_BUCKET", ""),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			EndpointURL:   getEnv("AWS_ENDPOINT_URL", ""),
			AccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},

		LogLevel:           getEnv("LOG_LEVEL", ""),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		TraceSampleRatio:   getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		AuthRatePerMinute:  getEnvInt("AUTH_RATE_PER_MINUTE", 30),

		ReindexInterval: getEnvDuration("REINDEX_INTERVAL", 30*time.Second),
		WorkerPort:      getEnvInt("WORKER_PORT", 8081),
	}
}

// Validate reports settings the API cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.StoreDriver {
	case "postgres", "mongo", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.Mail.Driver {
	case "smtp", "log":
	case "resend":
		if c.Mail.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required when MAIL_DRIVER=resend")
		}
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver)
	}

	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "storefront")
	pass := getEnv("DB_PASSWORD", "storefront")
	name := getEnv("DB_NAME", "storefront")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom keeps the parent's values (trace span, actor) and
// cancellation.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}
