package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/pixelpanic/pixel-panic-api/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCheckoutRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *events.RecordingPublisher) {
	publisher := events.NewRecordingPublisher()
	coupons := services.NewCouponService(db)
	checkout := services.NewCheckoutService(db, coupons, publisher, models.OrderConfirmed, zerolog.Nop())
	controller := NewCheckoutController(checkout, coupons)
	auth := newAuthenticator(t, db)

	router := setupTestRouter()
	router.POST("/api/checkout/create-order", auth.RequireSession(), controller.CreateOrder)
	router.POST("/api/checkout/validate-coupon", auth.RequireSession(), controller.ValidateCoupon)
	router.POST("/api/checkout/validate-coupon-public", auth.OptionalSession(), controller.ValidateCouponPublic)
	return router, publisher
}

func cartBody(catalog *testutil.Catalog, grade string, price int64, coupon string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"model_id": catalog.Model.ID, "issue_id": catalog.Screen.ID, "grade": grade, "price": fmt.Sprint(price)},
		},
		"address": map[string]interface{}{
			"full_name":       "Asha Rao",
			"phone_number":    "9876543210",
			"flat_and_street": "12 MG Road, Indiranagar",
			"pincode":         "560038",
		},
		"service_mode": "doorstep",
		"coupon_code":  coupon,
	}
}

func TestCreateOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	token := testutil.MintToken(t, customer.ID, models.RoleCustomer, time.Hour)
	testutil.CreateCoupon(t, db, "FLAT500", models.CouponFixedAmount, 500)
	router, publisher := setupCheckoutRouter(t, db)

	t.Run("requires a session", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/checkout/create-order", "", cartBody(catalog, models.GradeOEM, 8000, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("prices the cart and applies the coupon", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/checkout/create-order", token, cartBody(catalog, models.GradeOEM, 8000, "flat500"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var result services.CreateOrderResult
		decodeEnvelope(t, w, &result)
		assert.True(t, decimal.NewFromInt(8000).Equal(result.SubtotalAmount))
		assert.True(t, decimal.NewFromInt(500).Equal(result.DiscountAmount))
		assert.True(t, decimal.NewFromInt(7500).Equal(result.TotalAmount))
		assert.Regexp(t, `^PP-\d{8}-[A-Z0-9]{6}$`, result.OrderNumber)
		assert.Equal(t, []string{events.OrderCreated}, publisher.Types())
	})

	t.Run("stale client price is a conflict", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/api/checkout/create-order", token, cartBody(catalog, models.GradeOEM, 7000, ""))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PRICE_MISMATCH", decodeEnvelope(t, w, nil).Error.Code)
	})

	t.Run("unoffered grade is reported per item", func(t *testing.T) {
		body := cartBody(catalog, models.GradeOEM, 0, "")
		body["items"] = []map[string]interface{}{
			{"model_id": catalog.Model.ID, "issue_id": catalog.Battery.ID, "grade": models.GradeOEM},
		}

		w := performRequest(router, http.MethodPost, "/api/checkout/create-order", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w, nil)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "items[0].grade")
	})

	t.Run("unknown coupon rolls back", func(t *testing.T) {
		var before int64
		db.Model(&models.Order{}).Count(&before)

		w := performRequest(router, http.MethodPost, "/api/checkout/create-order", token, cartBody(catalog, models.GradeOEM, 8000, "NOPE"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "COUPON_INVALID", decodeEnvelope(t, w, nil).Error.Code)

		var after int64
		db.Model(&models.Order{}).Count(&after)
		assert.Equal(t, before, after)
	})
}

func TestValidateCoupon(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateCoupon(t, db, "SAVE10", models.CouponPercentage, 10)
	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	token := testutil.MintToken(t, customer.ID, models.RoleCustomer, time.Hour)
	router, _ := setupCheckoutRouter(t, db)

	tests := []struct {
		name         string
		path         string
		token        string
		body         map[string]interface{}
		wantStatus   int
		wantValid    bool
		wantDiscount int64
	}{
		{
			name:         "public preview",
			path:         "/api/checkout/validate-coupon-public",
			body:         map[string]interface{}{"code": "save10", "order_amount": "1000"},
			wantStatus:   http.StatusOK,
			wantValid:    true,
			wantDiscount: 100,
		},
		{
			name:         "signed in",
			path:         "/api/checkout/validate-coupon",
			token:        token,
			body:         map[string]interface{}{"code": "SAVE10", "order_amount": "2500"},
			wantStatus:   http.StatusOK,
			wantValid:    true,
			wantDiscount: 250,
		},
		{
			name:       "unknown code is a valid response with valid=false",
			path:       "/api/checkout/validate-coupon-public",
			body:       map[string]interface{}{"code": "MISSING", "order_amount": "1000"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "signed in endpoint needs a session",
			path:       "/api/checkout/validate-coupon",
			body:       map[string]interface{}{"code": "SAVE10", "order_amount": "1000"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "negative amount",
			path:       "/api/checkout/validate-coupon-public",
			body:       map[string]interface{}{"code": "SAVE10", "order_amount": "-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing amount",
			path:       "/api/checkout/validate-coupon-public",
			body:       map[string]interface{}{"code": "SAVE10"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var result services.CouponResult
			decodeEnvelope(t, w, &result)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.True(t, decimal.NewFromInt(tt.wantDiscount).Equal(result.DiscountAmount), "discount %s", result.DiscountAmount)
		})
	}
}
