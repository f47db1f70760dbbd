package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Session settings shared by tests that sign or verify tokens
const (
	JWTSecret   = "test-secret"
	JWTIssuer   = "pixel-panic-api"
	JWTAudience = "pixel-panic-web"
	CookieName  = "auth_token"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a migrated in-memory sqlite database.
// A single connection keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// TestConfig returns a configuration suitable for wiring the app in tests
func TestConfig() *config.Config {
	return &config.Config{
		GoEnv:              "test",
		Port:               "8080",
		LogLevel:           "disabled",
		JWTSecret:          JWTSecret,
		JWTIssuer:          JWTIssuer,
		JWTAudience:        JWTAudience,
		AuthCookieName:     CookieName,
		SessionTTL:         7 * 24 * time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		OrderInitialStatus: string(models.OrderConfirmed),
		CompletionOTPTTL:   48 * time.Hour,
		OTPSendCooldown:    time.Minute,
		SMSCountryCode:     "91",
		RateLimitRPS:       100,
		RateLimitBurst:     100,
	}
}

// MintToken signs a session token the way the login flow does
func MintToken(t *testing.T, userID string, role models.Role, ttl time.Duration) string {
	t.Helper()
	return MintTokenWithSecret(t, JWTSecret, userID, role, ttl)
}

// MintTokenWithSecret signs a session token with an arbitrary secret
func MintTokenWithSecret(t *testing.T, secret, userID string, role models.Role, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iss":  JWTIssuer,
		"aud":  []string{JWTAudience},
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}
