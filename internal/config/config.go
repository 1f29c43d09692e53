package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	JWT       JWTConfig
	Email     EmailConfig
	AI        AIConfig
	Churn     ChurnConfig
	Loyalty   LoyaltyConfig
	RateLimit RateLimitConfig
	LogLevel  string
	LogFormat string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
	// BaseURL is the public origin used in tracking, unsubscribe and redirect links.
	BaseURL     string
	ReadTimeout time.Duration
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Driver string // mongo, memory
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// EmailConfig holds delivery provider configuration
type EmailConfig struct {
	From            string
	ResendAPIKey    string
	ResendBaseURL   string
	SendGridAPIKey  string
	SendGridBaseURL string
	Timeout         time.Duration
}

// AIConfig holds text generation configuration. An empty APIKey selects the rule-based generator.
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ChurnConfig holds churn detection settings
type ChurnConfig struct {
	ScanSchedule string // cron spec; empty disables the background scan
}

// LoyaltyConfig holds loyalty program settings
type LoyaltyConfig struct {
	PointsPerVisit int
}

// RateLimitConfig limits public tracking endpoints per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Storage drivers
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// legacyEnv maps config keys to the environment names used by existing deployments.
var legacyEnv = map[string][]string{
	"Server.Port":          {"PORT"},
	"MongoDB.URI":          {"MONGODB_URI"},
	"JWT.Secret":           {"JWT_SECRET"},
	"Email.ResendAPIKey":   {"RESEND_API_KEY"},
	"Email.SendGridAPIKey": {"SENDGRID_API_KEY"},
	"AI.APIKey":            {"GEMINI_API_KEY", "API_KEY"},
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, names := range legacyEnv {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyFallbacks()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyFallbacks fills values derived from other settings.
func (c *Config) applyFallbacks() {
	if hosts := GetEnvAsSlice("ALLOWED_HOSTS", ",", nil); len(hosts) > 0 {
		c.Server.AllowedHosts = hosts
	}
	if c.Server.BaseURL == "" {
		if domain := GetEnv("REPLIT_DOMAIN", ""); domain != "" {
			c.Server.BaseURL = "https://" + domain
		} else {
			c.Server.BaseURL = "http://localhost:" + c.Server.Port
		}
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Loyalty.PointsPerVisit <= 0 {
		c.Loyalty.PointsPerVisit = GetEnvAsInt("POINTS_PER_VISIT", 10)
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
}

// Validate reports settings that would prevent the server from running.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MongoDB.URI is required when Storage.Driver is mongo")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown Storage.Driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT.Secret (JWT_SECRET) is required")
	}
	return nil
}

// setDefaults sets default values for configuration. Every key is registered
// so that Unmarshal sees environment overrides.
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")
	v.SetDefault("Server.AllowedHosts", []string{"http://localhost:5173"})
	v.SetDefault("Server.BaseURL", "")
	v.SetDefault("Server.ReadTimeout", 15*time.Second)
	v.SetDefault("Storage.Driver", StorageMongo)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "pulsefit")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Email.From", "PulseFit <onboarding@resend.dev>")
	v.SetDefault("Email.ResendAPIKey", "")
	v.SetDefault("Email.ResendBaseURL", "https://api.resend.com")
	v.SetDefault("Email.SendGridAPIKey", "")
	v.SetDefault("Email.SendGridBaseURL", "https://api.sendgrid.com")
	v.SetDefault("Email.Timeout", 10*time.Second)
	v.SetDefault("AI.APIKey", "")
	v.SetDefault("AI.Model", "gemini-1.5-flash")
	v.SetDefault("AI.BaseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("AI.Timeout", 30*time.Second)
	v.SetDefault("Churn.ScanSchedule", "")
	v.SetDefault("Loyalty.PointsPerVisit", 0) // 0 falls back to POINTS_PER_VISIT, then 10
	v.SetDefault("RateLimit.RequestsPerSecond", 5.0)
	v.SetDefault("RateLimit.Burst", 20)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
}
