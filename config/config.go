package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"tamcust-api"`
	Environment                   string   `env:"ENVIRONMENT" env-default:"development"`
	Version                       string   `env:"VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"8080"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"`
	ShutdownTimeout               int      `env:"HTTP_SERVER_SHUTDOWN_TIMEOUT_SECONDS" env-default:"15"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:"postgres"`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"tamcust"`
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Target version, 0 migrates to the latest
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	DatabaseMigrateOnStart bool `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Secret for HS256 bearer tokens
	AuthJWTSecret    string        `env:"AUTH_JWT_SECRET"`
	AuthJWTExpiresIn time.Duration `env:"AUTH_JWT_EXPIRES_IN" env-default:"168h"`
	AuthBcryptCost   int           `env:"AUTH_BCRYPT_COST" env-default:"12"`
	// External identity provider, disabled when empty
	AuthOIDCIssuerURL string `env:"AUTH_OIDC_ISSUER_URL" env-default:""`
	AuthOIDCClientID  string `env:"AUTH_OIDC_CLIENT_ID" env-default:""`

	// single keeps every user in one default tenant
	TenantMode string `env:"TENANT_MODE" env-default:"multi"`
	DefaultLocale string `env:"DEFAULT_LOCALE" env-default:"en"`

	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Sign-in attempts per email and IP, 0 disables the limit
	SignInRateLimit  int           `env:"SIGN_IN_RATE_LIMIT" env-default:"10"`
	SignInRateWindow time.Duration `env:"SIGN_IN_RATE_WINDOW" env-default:"15m"`

	NotificationsEnabled bool `env:"NOTIFICATIONS_ENABLED" env-default:"false"`
	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaNotificationTopic string `env:"KAFKA_NOTIFICATION_TOPIC" env-default:"tamcust.notifications"`
	NotificationTimeout time.Duration `env:"NOTIFICATION_TIMEOUT" env-default:"10s"`

	// Enable OTLP tracing export
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
	OTLPSampleRatio float64 `env:"OTLP_SAMPLE_RATIO" env-default:"1"`
}

// Load reads an optional .env file into the environment and parses Config from it.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.TenantMode {
	case "single", "multi":
	default:
		return fmt.Errorf("TENANT_MODE must be single or multi, got %q", c.TenantMode)
	}
	if c.AuthJWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if len(c.AuthJWTSecret) < 32 {
		return errors.New("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.AuthOIDCIssuerURL != "" && c.AuthOIDCClientID == "" {
		return errors.New("AUTH_OIDC_CLIENT_ID is required when AUTH_OIDC_ISSUER_URL is set")
	}
	return nil
}
