package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ugram-notify/internal/pkg/validate"
)

// Account store backends.
const (
	AccountStoreDynamo = "dynamo"
	AccountStoreMongo  = "mongo"
)

// Token signing algorithms.
const (
	JWTAlgorithmHS256 = "HS256"
	JWTAlgorithmRS256 = "RS256"
)

// Overflow policies for the notification queue.
const (
	OverflowDropOldest = "drop-oldest"
	OverflowReject     = "reject"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `validate:"required"`
	AppEnv         string   `validate:"oneof=development production test"`
	AllowedOrigins []string `validate:"min=1,dive,required"` // CLIENT_ORIGIN, comma separated

	JWTAlgorithm        string `validate:"oneof=HS256 RS256"`
	JWTSecret           string `validate:"required_if=JWTAlgorithm HS256"`
	JWTPublicKeyPath    string `validate:"required_if=JWTAlgorithm RS256"`
	JWTPrivateKeyPath   string // RS256 only; needed when the process signs tokens (tests, tooling)
	JWTExpiry           time.Duration
	JWTIgnoreExpiration bool
	TokenCookieName     string `validate:"required"`

	AccountStore   string `validate:"oneof=dynamo mongo"`
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	MongoURI       string `validate:"required_if=AccountStore mongo"`
	MongoDatabase  string

	QueueCapacity  int    `validate:"min=1"`
	OverflowPolicy string `validate:"oneof=drop-oldest reject"`
	WSSendBuffer   int    `validate:"min=1"`
	WSRateLimit    float64
	WSRateBurst    int
	IngestToken    string // shared secret for the internal push routes; empty disables them

	LogLevel       string `validate:"oneof=trace debug info warn warning error"`
	LogPrettyPrint bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts string `validate:"required"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: strings.Split(getEnv("CLIENT_ORIGIN", "http://localhost:5173"), ","),

		JWTAlgorithm:        strings.ToUpper(getEnv("JWT_ALGORITHM", JWTAlgorithmHS256)),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTPublicKeyPath:    getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTPrivateKeyPath:   getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTExpiry:           getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		JWTIgnoreExpiration: getEnvBool("JWT_IGNORE_EXPIRATION", false),
		TokenCookieName:     getEnv("TOKEN_COOKIE_NAME", "token"),

		AccountStore:   getEnv("ACCOUNT_STORE", AccountStoreDynamo),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts: getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
		},
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "ugram"),

		QueueCapacity:  getEnvInt("NOTIFY_QUEUE_CAPACITY", 1024),
		OverflowPolicy: getEnv("NOTIFY_OVERFLOW_POLICY", OverflowDropOldest),
		WSSendBuffer:   getEnvInt("WS_SEND_BUFFER", 16),
		WSRateLimit:    getEnvFloat("WS_RATE_LIMIT", 5),
		WSRateBurst:    getEnvInt("WS_RATE_BURST", 10),
		IngestToken:    getEnv("NOTIFY_INGEST_TOKEN", ""),

		LogLevel:       strings.ToLower(getEnv("LOGGER_LEVEL", "debug")),
		LogPrettyPrint: getEnvBool("LOGGER_PRETTY_PRINT", true),
	}
}

// Validate checks the loaded values against their struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
