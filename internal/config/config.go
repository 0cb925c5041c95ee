package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at startup and passed
// explicitly to the components that need it.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	KMS           KMSConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Identity      IdentityConfig
	Auth          AuthConfig
	Lockout       LockoutConfig
}

type ServerConfig struct {
	Port           int
	BasePath       string
	TrustedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	EnableTLS      bool
	TLSPort        int
	CertFile       string
	KeyFile        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers       []string
	SecurityTopic string
	DisableEvents bool
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	URL           string
	Username      string
	Password      string
	AccountsIndex string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type HashingConfig struct {
	Argon2MemoryCost  int
	Argon2TimeCost    int
	Argon2Parallelism int
	Pepper            string
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

// IdentityConfig configures the external national-ID verification gateway.
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionTTL      time.Duration
	OTPTxnTTL       time.Duration
}

// LockoutConfig controls the failed-login lockout policy.
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// LoadConfig reads configuration from the environment. A .env file is honored
// outside production if present.
func LoadConfig() *Config {
	env := getEnv("APP_ENV", "development")
	if env != "production" {
		_ = godotenv.Load()
		env = getEnv("APP_ENV", env)
	}

	return &Config{
		Environment: env,
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			BasePath:       getEnv("API_BASE_PATH", "/api/v1"),
			TrustedOrigins: splitAndTrim(getEnv("TRUSTED_ORIGINS", "http://localhost:3000")),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			EnableTLS:      getEnvBool("ENABLE_TLS", false),
			TLSPort:        getEnvInt("TLS_PORT", 8443),
			CertFile:       getEnv("TLS_CERT_FILE", ""),
			KeyFile:        getEnv("TLS_KEY_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scylla: ScyllaConfig{
			Nodes:    splitAndTrim(getEnv("SCYLLA_NODES", "127.0.0.1:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "citizen_auth"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Kafka: KafkaConfig{
			Brokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			SecurityTopic: getEnv("KAFKA_SECURITY_TOPIC", "security-events"),
			DisableEvents: getEnvBool("KAFKA_DISABLE_EVENTS", false),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "auth_audit"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:           getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:      getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:      getEnv("ELASTICSEARCH_PASSWORD", ""),
			AccountsIndex: getEnv("ELASTICSEARCH_ACCOUNTS_INDEX", "accounts"),
		},
		KMS: KMSConfig{
			Enabled: getEnvBool("KMS_ENABLED", false),
			KeyID:   getEnv("KMS_KEY_ID", ""),
			Region:  getEnv("KMS_REGION", "us-east-1"),
		},
		Hashing: HashingConfig{
			Argon2MemoryCost:  getEnvInt("ARGON2_MEMORY_COST", 65536),
			Argon2TimeCost:    getEnvInt("ARGON2_TIME_COST", 3),
			Argon2Parallelism: getEnvInt("ARGON2_PARALLELISM", 4),
			Pepper:            getEnv("PASSWORD_PEPPER", ""),
		},
		Bucketing: BucketingConfig{
			UserBuckets:  getEnvInt("USER_BUCKETS", 256),
			EventBuckets: getEnvInt("EVENT_BUCKETS", 64),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_PROVIDER_URL", "http://localhost:9090"),
			APIKey:  getEnv("IDENTITY_PROVIDER_API_KEY", ""),
			Timeout: getEnvDuration("IDENTITY_PROVIDER_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-only-secret-change-me"),
			AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
			OTPTxnTTL:       getEnvDuration("OTP_TXN_TTL", 5*time.Minute),
		},
		Lockout: LockoutConfig{
			MaxAttempts:  getEnvInt("LOCKOUT_MAX_ATTEMPTS", 5),
			LockDuration: getEnvDuration("LOCKOUT_DURATION", 15*time.Minute),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
