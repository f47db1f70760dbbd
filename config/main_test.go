package config

import (
	"fmt"
	"os"
	"testing"
)

// leakedVars are unset before the config tests so a developer's shell or
// .env cannot change the defaults they assert on
var leakedVars = []string{
	"PORT", "LOG_LEVEL", "JWT_SECRET", "DEV_AUTH_USER_ID", "REDIS_URL",
	"KAFKA_BROKERS", "MESSAGE_CENTRAL_CUSTOMER_ID", "MESSAGE_CENTRAL_PASSWORD",
	"SESSION_TTL", "OTP_SEND_COOLDOWN", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// TestMain pins the config tests to GO_ENV=test and refuses any other
// environment, since Load reads the matching .env file
func TestMain(m *testing.M) {
	switch env := os.Getenv("GO_ENV"); env {
	case "":
		os.Setenv("GO_ENV", "test")
	case "test":
	default:
		fmt.Fprintf(os.Stderr, "config tests refuse to run with GO_ENV=%q; use GO_ENV=test\n", env)
		os.Exit(1)
	}

	for _, key := range leakedVars {
		os.Unsetenv(key)
	}

	os.Exit(m.Run())
}
