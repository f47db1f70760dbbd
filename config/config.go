package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	GoEnv       string
	LogLevel    string

	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	AuthCookieName   string
	AuthCookieDomain string
	SessionTTL       time.Duration
	DevAuthUserID    string

	CORSAllowedOrigins []string

	// OrderInitialStatus is either "confirmed" (no payment capture step) or
	// "pending_payment" (an admin confirms payment before work can start).
	OrderInitialStatus string
	CompletionOTPTTL   time.Duration

	RedisURL        string
	OTPSendCooldown time.Duration

	KafkaBrokers    []string
	KafkaOrderTopic string

	MessageCentralCustomerID string
	MessageCentralPassword   string
	MessageCentralBaseURL    string
	SMSCountryCode           string

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// In production, environment variables are set directly
		// so it's okay if .env files don't exist
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("No .env file found, using system environment variables")
		}
	} else {
		log.Debug().Str("file", envFile).Msg("Loaded configuration")
	}

	config := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		GoEnv:       getEnv("GO_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", "pixel-panic-api"),
		JWTAudience:      getEnv("JWT_AUDIENCE", "pixel-panic-web"),
		AuthCookieName:   getEnv("AUTH_COOKIE_NAME", "auth_token"),
		AuthCookieDomain: getEnv("AUTH_COOKIE_DOMAIN", ""),
		SessionTTL:       getDuration("SESSION_TTL", 7*24*time.Hour),
		DevAuthUserID:    getEnv("DEV_AUTH_USER_ID", ""),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		OrderInitialStatus: getEnv("ORDER_INITIAL_STATUS", "confirmed"),
		CompletionOTPTTL:   getDuration("COMPLETION_OTP_TTL", 48*time.Hour),

		RedisURL:        getEnv("REDIS_URL", ""),
		OTPSendCooldown: getDuration("OTP_SEND_COOLDOWN", time.Minute),

		KafkaBrokers:    getList("KAFKA_BROKERS", nil),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		MessageCentralCustomerID: getEnv("MESSAGE_CENTRAL_CUSTOMER_ID", ""),
		MessageCentralPassword:   getEnv("MESSAGE_CENTRAL_PASSWORD", ""),
		MessageCentralBaseURL:    getEnv("MESSAGE_CENTRAL_BASE_URL", "https://cpaas.messagecentral.com"),
		SMSCountryCode:           getEnv("SMS_COUNTRY_CODE", "91"),

		AWSRegion:          getEnv("AWS_REGION", "ap-south-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 5),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.IsTest() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" && !c.IsTest() {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OrderInitialStatus != "confirmed" && c.OrderInitialStatus != "pending_payment" {
		return fmt.Errorf("ORDER_INITIAL_STATUS must be confirmed or pending_payment, got %q", c.OrderInitialStatus)
	}
	if c.DevAuthUserID != "" && c.IsProduction() {
		return fmt.Errorf("DEV_AUTH_USER_ID must not be set in production")
	}
	if c.CompletionOTPTTL <= 0 {
		return fmt.Errorf("COMPLETION_OTP_TTL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// DevAuthEnabled reports whether the development session bypass is active.
// It can never be true outside development.
func (c *Config) DevAuthEnabled() bool {
	return c.IsDevelopment() && c.DevAuthUserID != ""
}

// SMSConfigured reports whether Message Central credentials are present
func (c *Config) SMSConfigured() bool {
	return c.MessageCentralCustomerID != "" && c.MessageCentralPassword != ""
}

// S3Configured reports whether an S3 bucket is configured for uploads
func (c *Config) S3Configured() bool {
	return c.AWSS3Bucket != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Dur("default", defaultValue).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Int("default", defaultValue).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Float64("default", defaultValue).Msg("Invalid number, using default")
		return defaultValue
	}
	return f
}

// getList splits a comma separated variable, dropping empty entries
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
