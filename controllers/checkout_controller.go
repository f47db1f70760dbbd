package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/middleware"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/shopspring/decimal"
)

// ValidateCouponRequest describes the cart a coupon is checked against
type ValidateCouponRequest struct {
	Code        string             `json:"code" binding:"required,max=32"`
	OrderAmount *decimal.Decimal   `json:"order_amount" binding:"required"`
	ServiceMode models.ServiceMode `json:"service_mode" binding:"omitempty,oneof=doorstep carry_in"`
	BrandIDs    []uint             `json:"brand_ids"`
	ModelIDs    []uint             `json:"model_ids"`
}

// CheckoutController places orders and previews coupons
type CheckoutController struct {
	checkout *services.CheckoutService
	coupons  *services.CouponService
}

// NewCheckoutController creates a checkout controller
func NewCheckoutController(checkout *services.CheckoutService, coupons *services.CouponService) *CheckoutController {
	return &CheckoutController{checkout: checkout, coupons: coupons}
}

// CreateOrder handles POST /api/checkout/create-order
func (cc *CheckoutController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := cc.checkout.CreateOrder(c.Request.Context(), p.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, result)
}

// ValidateCoupon handles POST /api/checkout/validate-coupon. The caller's
// previous redemptions count towards the per-user limit.
func (cc *CheckoutController) ValidateCoupon(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	cc.validate(c, p.UserID)
}

// ValidateCouponPublic handles POST /api/checkout/validate-coupon-public.
// Signed-in callers are checked against their own usage.
func (cc *CheckoutController) ValidateCouponPublic(c *gin.Context) {
	userID := ""
	if p, ok := middleware.GetPrincipal(c); ok {
		userID = p.UserID
	}
	cc.validate(c, userID)
}

func (cc *CheckoutController) validate(c *gin.Context, userID string) {
	var req ValidateCouponRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OrderAmount.IsNegative() {
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", map[string]string{"order_amount": "Must not be negative"})
		return
	}

	result, err := cc.coupons.Validate(c.Request.Context(), services.CouponQuery{
		Code:        req.Code,
		OrderAmount: *req.OrderAmount,
		ServiceMode: req.ServiceMode,
		BrandIDs:    req.BrandIDs,
		ModelIDs:    req.ModelIDs,
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}
