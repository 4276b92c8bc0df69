package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"

	TransportKafka = "kafka"
	TransportRedis = "redis"
	TransportLog   = "log"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	MongoURI             string
	DatabaseName         string
	StoreDriver          string
	MongoUseTransactions bool

	JWTSecret string
	JWTIssuer string

	// Category engine policy
	MaxHierarchyDepth     int
	CategoryNameMaxLength int
	AllowDuplicateNames   bool
	ListDefaultLimit      int64
	ListMaxLimit          int64

	EventTransport      string
	KafkaBrokers        []string
	KafkaCategoryTopic  string
	RedisAddr           string
	RedisPassword       string
	RedisCategoryStream string
	SyncTimeout         time.Duration

	B2ApplicationKeyID string
	B2ApplicationKey   string
	B2BucketName       string
	MaxEvidenceSize    int64

	ReconcileInterval time.Duration

	AllowedOrigins []string
}

var AppConfig *Config

// LoadEnvFile loads the first .env found. A missing file is not an error.
func LoadEnvFile() string {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadConfig reads the environment into AppConfig and validates it.
func LoadConfig() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:             getMongoURI(),
		DatabaseName:         getEnv("DATABASE_NAME", "elevate-project"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo)),
		MongoUseTransactions: p.parseBool("MONGO_USE_TRANSACTIONS", getEnv("MONGO_USE_TRANSACTIONS", "false")),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		MaxHierarchyDepth:     p.parseInt("MAX_HIERARCHY_DEPTH", getEnv("MAX_HIERARCHY_DEPTH", "5")),
		CategoryNameMaxLength: p.parseInt("CATEGORY_NAME_MAX_LENGTH", getEnv("CATEGORY_NAME_MAX_LENGTH", "100")),
		AllowDuplicateNames:   p.parseBool("ALLOW_DUPLICATE_NAMES", getEnv("ALLOW_DUPLICATE_NAMES", "false")),
		ListDefaultLimit:      p.parseInt64("LIST_DEFAULT_LIMIT", getEnv("LIST_DEFAULT_LIMIT", "20")),
		ListMaxLimit:          p.parseInt64("LIST_MAX_LIMIT", getEnv("LIST_MAX_LIMIT", "100")),

		EventTransport:      strings.ToLower(getEnv("EVENT_TRANSPORT", TransportLog)),
		KafkaBrokers:        parseStringSlice(getEnv("KAFKA_BROKERS", "")),
		KafkaCategoryTopic:  getEnv("KAFKA_CATEGORY_TOPIC", "project.category.updates"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisCategoryStream: getEnv("REDIS_CATEGORY_STREAM", "project:category:updates"),
		SyncTimeout:         p.parseDuration("SYNC_TIMEOUT", getEnv("SYNC_TIMEOUT", "10s")),

		B2ApplicationKeyID: getFirstEnv("B2_APPLICATION_KEY_ID", "B2_KEY_ID", "BACKBLAZE_KEY_ID"),
		B2ApplicationKey:   getFirstEnv("B2_APPLICATION_KEY", "B2_APP_KEY", "BACKBLAZE_APP_KEY"),
		B2BucketName:       getFirstEnv("B2_BUCKET_NAME", "B2_BUCKET", "BACKBLAZE_BUCKET"),
		MaxEvidenceSize:    p.parseInt64("MAX_EVIDENCE_SIZE", getEnv("MAX_EVIDENCE_SIZE", "10485760")),

		ReconcileInterval: p.parseDuration("RECONCILE_INTERVAL", getEnv("RECONCILE_INTERVAL", "0")),

		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			problems = append(problems, "MONGO_URI is required")
		}
		if c.DatabaseName == "" {
			problems = append(problems, "DATABASE_NAME is required")
		}
	case StoreDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER must be %q or %q", StoreDriverMongo, StoreDriverMemory))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.MaxHierarchyDepth < 1 {
		problems = append(problems, "MAX_HIERARCHY_DEPTH must be at least 1")
	}
	if c.CategoryNameMaxLength < 1 {
		problems = append(problems, "CATEGORY_NAME_MAX_LENGTH must be at least 1")
	}
	if c.ListDefaultLimit < 1 || c.ListMaxLimit < c.ListDefaultLimit {
		problems = append(problems, "LIST_DEFAULT_LIMIT must be positive and not above LIST_MAX_LIMIT")
	}

	switch c.EventTransport {
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			problems = append(problems, "KAFKA_BROKERS is required for the kafka transport")
		}
	case TransportRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis transport")
		}
	case TransportLog:
	default:
		problems = append(problems, fmt.Sprintf("EVENT_TRANSPORT must be one of %s, %s, %s", TransportKafka, TransportRedis, TransportLog))
	}

	if c.ReconcileInterval < 0 {
		problems = append(problems, "RECONCILE_INTERVAL cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EvidenceStorageEnabled reports whether B2 credentials are complete.
func (c *Config) EvidenceStorageEnabled() bool {
	return c.B2ApplicationKeyID != "" && c.B2ApplicationKey != "" && c.B2BucketName != ""
}

func (c *Config) LogSummary(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("port", c.Port),
		zap.String("env", c.Env),
		zap.String("store_driver", c.StoreDriver),
		zap.String("database", c.DatabaseName),
		zap.String("mongo_uri", maskConnectionString(c.MongoURI)),
		zap.Bool("mongo_transactions", c.MongoUseTransactions),
		zap.String("jwt_secret", maskSecret(c.JWTSecret)),
		zap.Int("max_hierarchy_depth", c.MaxHierarchyDepth),
		zap.Bool("allow_duplicate_names", c.AllowDuplicateNames),
		zap.String("event_transport", c.EventTransport),
		zap.Strings("kafka_brokers", c.KafkaBrokers),
		zap.String("redis_addr", c.RedisAddr),
		zap.String("b2_key_id", maskSecret(c.B2ApplicationKeyID)),
		zap.String("b2_bucket", c.B2BucketName),
		zap.Duration("reconcile_interval", c.ReconcileInterval),
		zap.Strings("allowed_origins", c.AllowedOrigins),
	)
}

func getMongoURI() string {
	return getFirstEnv("MONGO_URI", "MONGODB_URI")
}

func getFirstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if uri == "" {
		return "[NOT SET]"
	}
	if strings.Contains(uri, "@") {
		parts := strings.Split(uri, "@")
		if len(parts) >= 2 {
			return "[CREDENTIALS_HIDDEN]@" + parts[len(parts)-1]
		}
	}
	return uri
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion failures so they can be reported together.
type parser struct {
	errs []string
}

func (p *parser) parseInt(key, s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not an integer", key, s))
	}
	return i
}

func (p *parser) parseInt64(key, s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not an integer", key, s))
	}
	return i
}

func (p *parser) parseBool(key, s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not a boolean", key, s))
	}
	return b
}

func (p *parser) parseDuration(key, s string) time.Duration {
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not a duration", key, s))
	}
	return d
}

func CreateContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	var result []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
