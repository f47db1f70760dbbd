package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// AssignOrderRequest represents the request body for assigning a technician
type AssignOrderRequest struct {
	OrderID      uint   `json:"order_id" binding:"required"`
	TechnicianID string `json:"technician_id" binding:"required"`
}

// CancelOrderRequest represents the request body for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=512"`
}

// SearchOrdersRequest is the JSON form of the admin order list filters
type SearchOrdersRequest struct {
	Status   models.OrderStatus `json:"status"`
	Page     int                `json:"page" binding:"omitempty,min=1"`
	PageSize int                `json:"page_size" binding:"omitempty,min=1,max=100"`
}

// OrderController serves customer and admin order endpoints
type OrderController struct {
	orders *services.OrderService
}

// NewOrderController creates an order controller
func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListMine handles GET /api/orders
func (oc *OrderController) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := oc.orders.ListForCustomer(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, orders)
}

// GetMine handles GET /api/orders/:id
func (oc *OrderController) GetMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.GetForCustomer(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// List handles GET /api/admin/orders?status=&page=&page_size=
func (oc *OrderController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := oc.orders.ListForAdmin(c.Request.Context(), services.AdminOrderFilter{
		Status:   models.OrderStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// Search handles POST /api/admin/orders with the filters in the body
func (oc *OrderController) Search(c *gin.Context) {
	var req SearchOrdersRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := oc.orders.ListForAdmin(c.Request.Context(), services.AdminOrderFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// Get handles GET /api/admin/orders/:id
func (oc *OrderController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.GetForAdmin(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// respondAdminOrder reloads the order in its admin view after a mutation
func (oc *OrderController) respondAdminOrder(c *gin.Context, id uint) {
	order, err := oc.orders.GetForAdmin(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// Assign handles POST /api/admin/assign-order
func (oc *OrderController) Assign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req AssignOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := oc.orders.Assign(c.Request.Context(), req.OrderID, req.TechnicianID, p.UserID); err != nil {
		respondError(c, err)
		return
	}
	oc.respondAdminOrder(c, req.OrderID)
}

// RegenerateOTP handles POST /api/admin/orders/:id/regenerate-otp
func (oc *OrderController) RegenerateOTP(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	otp, err := oc.orders.RegenerateOTP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, otp)
}

// ConfirmPayment handles POST /api/admin/orders/:id/confirm-payment
func (oc *OrderController) ConfirmPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := oc.orders.ConfirmPayment(c.Request.Context(), id, p.UserID); err != nil {
		respondError(c, err)
		return
	}
	oc.respondAdminOrder(c, id)
}

// CompleteWithCosts handles POST /api/admin/orders/:id/complete-with-costs
func (oc *OrderController) CompleteWithCosts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CostsInput
	if !bindJSON(c, &req) {
		return
	}

	if _, err := oc.orders.CompleteWithCosts(c.Request.Context(), id, p.UserID, req); err != nil {
		respondError(c, err)
		return
	}
	oc.respondAdminOrder(c, id)
}

// Cancel handles POST /api/admin/orders/:id/cancel
func (oc *OrderController) Cancel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	if _, err := oc.orders.Cancel(c.Request.Context(), id, p.UserID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	oc.respondAdminOrder(c, id)
}
