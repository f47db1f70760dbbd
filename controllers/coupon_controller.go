package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// CouponController manages coupons for admins
type CouponController struct {
	coupons *services.CouponService
}

// NewCouponController creates a coupon controller
func NewCouponController(coupons *services.CouponService) *CouponController {
	return &CouponController{coupons: coupons}
}

// Create handles POST /api/admin/coupons
func (cc *CouponController) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CouponInput
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := cc.coupons.Create(c.Request.Context(), req, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, coupon)
}

// List handles GET /api/admin/coupons
func (cc *CouponController) List(c *gin.Context) {
	coupons, err := cc.coupons.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, coupons)
}

// Get handles GET /api/admin/coupons/:id
func (cc *CouponController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	coupon, err := cc.coupons.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, coupon)
}

// Update handles PATCH /api/admin/coupons/:id
func (cc *CouponController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CouponUpdate
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := cc.coupons.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, coupon)
}
