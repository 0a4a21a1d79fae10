package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider exposes configuration values through getters so that packages can
// depend on a narrow interface and tests can stub only what they read.
type Provider interface {
	GetServerAddr() string
	GetAppBaseURL() string
	GetAllowedOrigins() []string

	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetJWTSecret() string
	GetJWTExpire() time.Duration
	GetSessionSecret() string

	GetEmailProvider() string
	GetEmailSender() string
	GetEmailAPIKey() string

	GetStorageBackend() string
	GetStorageDir() string
	GetStoragePublicURL() string
	GetS3Bucket() string
	GetS3Region() string
	GetS3Endpoint() string
	GetS3AccessKeyID() string
	GetS3SecretAccessKey() string

	GetRateLimit() float64
	GetJanitorSchedule() string
}

// Config holds all configuration for the application. Values are read from the
// environment (optionally seeded from a .env file).
type Config struct {
	ServerAddr     string   `envconfig:"SERVER_ADDR" default:":8080"`
	AppBaseURL     string   `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	DBUrl            string        `envconfig:"SURREAL_URL" required:"true"`
	DBNs             string        `envconfig:"SURREAL_NS" required:"true"`
	DBDb             string        `envconfig:"SURREAL_DB" required:"true"`
	DBUser           string        `envconfig:"SURREAL_USER"`
	DBPass           string        `envconfig:"SURREAL_PASS"`
	DBQueryTimeout   time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"5s"`
	DBExecuteTimeout time.Duration `envconfig:"DB_EXECUTE_TIMEOUT" default:"10s"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpire     time.Duration `envconfig:"JWT_EXPIRE" default:"72h"`
	SessionSecret string        `envconfig:"SESSION_SECRET" default:"change-me-session-secret"`

	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"log"`
	EmailSender   string `envconfig:"EMAIL_SENDER"`
	EmailAPIKey   string `envconfig:"EMAIL_API_KEY"`

	StorageBackend    string `envconfig:"STORAGE_BACKEND" default:"local"`
	StorageDir        string `envconfig:"STORAGE_DIR" default:"uploads"`
	StoragePublicURL  string `envconfig:"STORAGE_PUBLIC_URL" default:"/media"`
	S3Bucket          string `envconfig:"S3_BUCKET"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`

	// RateLimit is the sustained number of API requests per second per IP.
	RateLimit       float64 `envconfig:"RATE_LIMIT" default:"0.111"`
	JanitorSchedule string  `envconfig:"JANITOR_SCHEDULE" default:"@every 10m"`
}

var _ Provider = (*Config)(nil)

// Load reads the .env file if present and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// slog is not configured yet at this point.
		log.Println("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New loads configuration and exits the process if it is unusable.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "local":
	case "s3":
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("STORAGE_BACKEND is 's3' but S3_BUCKET is not set")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
	if c.JWTExpire <= 0 {
		return fmt.Errorf("JWT_EXPIRE must be a positive duration")
	}
	return nil
}

func (c *Config) GetServerAddr() string       { return c.ServerAddr }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }
func (c *Config) GetAllowedOrigins() []string { return c.AllowedOrigins }
func (c *Config) GetDBURL() string            { return c.DBUrl }
func (c *Config) GetDBNs() string             { return c.DBNs }
func (c *Config) GetDBDb() string             { return c.DBDb }
func (c *Config) GetDBUser() string           { return c.DBUser }
func (c *Config) GetDBPass() string           { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration {
	return c.DBQueryTimeout
}
func (c *Config) GetDBExecuteTimeout() time.Duration {
	return c.DBExecuteTimeout
}
func (c *Config) GetJWTSecret() string         { return c.JWTSecret }
func (c *Config) GetJWTExpire() time.Duration  { return c.JWTExpire }
func (c *Config) GetSessionSecret() string     { return c.SessionSecret }
func (c *Config) GetEmailProvider() string     { return c.EmailProvider }
func (c *Config) GetEmailSender() string       { return c.EmailSender }
func (c *Config) GetEmailAPIKey() string       { return c.EmailAPIKey }
func (c *Config) GetStorageBackend() string    { return c.StorageBackend }
func (c *Config) GetStorageDir() string        { return c.StorageDir }
func (c *Config) GetStoragePublicURL() string  { return c.StoragePublicURL }
func (c *Config) GetS3Bucket() string          { return c.S3Bucket }
func (c *Config) GetS3Region() string          { return c.S3Region }
func (c *Config) GetS3Endpoint() string        { return c.S3Endpoint }
func (c *Config) GetS3AccessKeyID() string     { return c.S3AccessKeyID }
func (c *Config) GetS3SecretAccessKey() string { return c.S3SecretAccessKey }
func (c *Config) GetRateLimit() float64        { return c.RateLimit }
func (c *Config) GetJanitorSchedule() string   { return c.JanitorSchedule }
