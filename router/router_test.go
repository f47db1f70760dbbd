package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/pixelpanic/pixel-panic-api/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := Setup(Deps{
		Config:    testutil.TestConfig(),
		DB:        testutil.NewTestDB(t),
		Logger:    zerolog.Nop(),
		SMS:       services.NewStubSMSProvider(zerolog.Nop()),
		Throttle:  services.NewMemoryThrottle(),
		Publisher: events.NopPublisher{},
		Store:     services.NewMockS3Service(),
	})
	require.NoError(t, err)
	return engine
}

func TestRoutesAreRegistered(t *testing.T) {
	engine := setup(t)

	registered := map[string]bool{}
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	expected := []string{
		"POST /api/auth/send-otp",
		"POST /api/auth/verify-otp",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"PUT /api/auth/me",
		"GET /api/brands",
		"GET /api/models",
		"GET /api/services",
		"POST /api/contact/submit",
		"POST /api/checkout/validate-coupon-public",
		"POST /api/checkout/validate-coupon",
		"POST /api/checkout/create-order",
		"GET /api/orders",
		"GET /api/orders/:id",
		"GET /api/technicians/invites/:token",
		"POST /api/technicians/invites/:token/complete",
		"GET /api/technicians/me/gigs",
		"GET /api/technicians/gigs/:id",
		"POST /api/technicians/gigs/:id/status",
		"POST /api/technicians/gigs/:id/complete",
		"POST /api/technicians/upload",
		"GET /api/admin/dashboard",
		"GET /api/admin/orders",
		"POST /api/admin/orders",
		"POST /api/admin/assign-order",
		"POST /api/admin/orders/:id/complete-with-costs",
		"POST /api/admin/orders/:id/cancel",
		"GET /api/admin/technicians",
		"POST /api/admin/technician-invites",
		"POST /api/admin/coupons",
		"PATCH /api/admin/models/:id",
		"POST /api/admin/generate-upload-url",
		"GET /api/admin/contact-messages/stats",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout/create-order", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	engine := setup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/brands", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRoutesRequireSession(t *testing.T) {
	engine := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
