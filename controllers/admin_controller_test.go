package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/middleware"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/pixelpanic/pixel-panic-api/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAdminRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	dashboard := services.NewDashboardService(db)
	dashboardController := NewDashboardController(dashboard)
	couponController := NewCouponController(services.NewCouponService(db))
	technicianController := NewAdminTechnicianController(services.NewTechnicianService(db, dashboard, "91", zerolog.Nop()))
	auth := newAuthenticator(t, db)

	router := setupTestRouter()
	admin := router.Group("/api/admin", auth.RequireSession(), middleware.RequireRole(models.RoleAdmin))
	admin.GET("/dashboard", dashboardController.Stats)
	admin.GET("/coupons", couponController.List)
	admin.POST("/coupons", couponController.Create)
	admin.GET("/coupons/:id", couponController.Get)
	admin.PATCH("/coupons/:id", couponController.Update)
	admin.GET("/technicians", technicianController.List)
	admin.POST("/technicians", technicianController.Create)
	admin.GET("/technicians/:id", technicianController.Get)
	admin.PATCH("/technicians/:id", technicianController.Update)
	admin.POST("/technician-invites", technicianController.CreateInvite)
	admin.GET("/technician-invites", technicianController.ListInvites)
	return router
}

func TestDashboardStats(t *testing.T) {
	db := testutil.NewTestDB(t)
	router := setupAdminRouter(t, db)
	admin := testutil.CreateUser(t, db, models.RoleAdmin)
	token := testutil.MintToken(t, admin.ID, models.RoleAdmin, time.Hour)

	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	now := time.Now().UTC()
	testutil.CreateOrder(t, db, customer.ID, 2000, func(o *models.Order) {
		o.Status = models.OrderCompleted
		confirmed := now.Add(-90 * time.Minute)
		o.ConfirmedAt = &confirmed
		o.CompletedAt = &now
		o.PartPrice = decimal.NewNullDecimal(decimal.NewFromInt(500))
	})
	testutil.CreateOrder(t, db, customer.ID, 800)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"default range", "", http.StatusOK},
		{"browser offset for IST", "?range=today&tzOffset=-330", http.StatusOK},
		{"custom range", "?range=custom&from=2024-01-01&to=2024-01-31", http.StatusOK},
		{"offset is not a number", "?tzOffset=abc", http.StatusBadRequest},
		{"offset out of range", "?tzOffset=2000", http.StatusBadRequest},
		{"custom range reversed", "?range=custom&from=2024-02-01&to=2024-01-01", http.StatusBadRequest},
		{"unknown range", "?range=fortnight", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, "/api/admin/dashboard"+tt.query, token, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	t.Run("today's figures", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/admin/dashboard?range=today&tzOffset=0", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats services.DashboardStats
		decodeEnvelope(t, w, &stats)
		assert.Equal(t, int64(1), stats.CompletedJobs)
		assert.True(t, decimal.NewFromInt(2000).Equal(stats.Revenue))
		assert.True(t, decimal.NewFromInt(1500).Equal(stats.Profit))
		require.NotNil(t, stats.AverageRepairMinutes)
		assert.InDelta(t, 90, *stats.AverageRepairMinutes, 0.5)
	})
}

func TestAdminCoupons(t *testing.T) {
	db := testutil.NewTestDB(t)
	router := setupAdminRouter(t, db)
	admin := testutil.CreateUser(t, db, models.RoleAdmin)
	token := testutil.MintToken(t, admin.ID, models.RoleAdmin, time.Hour)

	valid := map[string]interface{}{
		"code":             " welcome20 ",
		"name":             "Welcome offer",
		"type":             "percentage",
		"value":            "20",
		"maximum_discount": "500",
		"valid_from":       time.Now().UTC().Format(time.RFC3339),
		"valid_until":      time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}

	w := performRequest(router, http.MethodPost, "/api/admin/coupons", token, valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var coupon models.Coupon
	decodeEnvelope(t, w, &coupon)
	assert.Equal(t, "WELCOME20", coupon.Code)

	t.Run("duplicate code", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/admin/coupons", token, valid)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_CODE", decodeEnvelope(t, w, nil).Error.Code)
	})

	t.Run("percentage above 100", func(t *testing.T) {
		bad := map[string]interface{}{}
		for k, v := range valid {
			bad[k] = v
		}
		bad["code"] = "TOOMUCH"
		bad["value"] = "150"

		w := performRequest(router, http.MethodPost, "/api/admin/coupons", token, bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeEnvelope(t, w, nil).Error.Details, "value")
	})

	t.Run("deactivate", func(t *testing.T) {
		w := performRequest(router, http.MethodPatch, fmt.Sprintf("/api/admin/coupons/%d", coupon.ID), token, map[string]string{"status": "inactive"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated models.Coupon
		decodeEnvelope(t, w, &updated)
		assert.Equal(t, models.CouponInactive, updated.Status)
	})

	t.Run("list and get", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/admin/coupons", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = performRequest(router, http.MethodGet, "/api/admin/coupons/999", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminTechnicians(t *testing.T) {
	db := testutil.NewTestDB(t)
	router := setupAdminRouter(t, db)
	admin := testutil.CreateUser(t, db, models.RoleAdmin)
	token := testutil.MintToken(t, admin.ID, models.RoleAdmin, time.Hour)

	w := performRequest(router, http.MethodPost, "/api/admin/technicians", token, map[string]string{
		"phone_number": "+91 99000 12345", "name": "Ravi",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tech models.Technician
	decodeEnvelope(t, w, &tech)

	t.Run("same phone twice", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/admin/technicians", token, map[string]string{"phone_number": "9900012345"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ALREADY_TECHNICIAN", decodeEnvelope(t, w, nil).Error.Code)
	})

	t.Run("admins cannot be technicians", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/admin/technicians", token, map[string]string{"phone_number": admin.PhoneNumber})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "USER_IS_ADMIN", decodeEnvelope(t, w, nil).Error.Code)
	})

	t.Run("status update", func(t *testing.T) {
		w := performRequest(router, http.MethodPatch, fmt.Sprintf("/api/admin/technicians/%d", tech.ID), token, map[string]string{"status": "on_leave"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = performRequest(router, http.MethodPatch, fmt.Sprintf("/api/admin/technicians/%d", tech.ID), token, map[string]string{"status": "retired"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("roster with performance", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/admin/technicians", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var roster []services.TechnicianWithStats
		decodeEnvelope(t, w, &roster)
		require.Len(t, roster, 1)
		assert.Equal(t, models.TechnicianOnLeave, roster[0].Status)
		require.NotNil(t, roster[0].Performance)
		assert.Equal(t, int64(0), roster[0].Performance.CompletedJobs)
	})

	t.Run("invites", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/admin/technician-invites", token, map[string]string{"phone_number": "9900054321"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var invite models.TechnicianInvite
		decodeEnvelope(t, w, &invite)
		assert.Len(t, invite.Token, 64)
		assert.WithinDuration(t, time.Now().Add(services.InviteTTL), invite.ExpiresAt, time.Minute)

		w = performRequest(router, http.MethodGet, "/api/admin/technician-invites", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var invites []models.TechnicianInvite
		decodeEnvelope(t, w, &invites)
		assert.Len(t, invites, 1)
	})
}
