package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerOrder is an order as its owner sees it. The completion OTP is
// included while the job is open so the customer can hand it over.
type CustomerOrder struct {
	models.Order
	CompletionCode          *string    `json:"completion_otp,omitempty"`
	CompletionCodeExpiresAt *time.Time `json:"completion_otp_expires_at,omitempty"`
}

// Gig is an order as its assigned technician sees it: no cost bookkeeping
// and never the completion OTP
type Gig struct {
	models.Order
}

// AdminOrder adds the derived cost figures to an order
type AdminOrder struct {
	models.Order
	SubtotalAmount          decimal.Decimal `json:"subtotal_amount"`
	TotalCosts              decimal.Decimal `json:"total_costs"`
	Profit                  decimal.Decimal `json:"profit"`
	CompletionCode          *string         `json:"completion_otp,omitempty"`
	CompletionCodeExpiresAt *time.Time      `json:"completion_otp_expires_at,omitempty"`
}

// AdminOrderFilter selects a page of orders
type AdminOrderFilter struct {
	Status   models.OrderStatus
	Page     int
	PageSize int
}

// OrderPage is one page of the admin order list
type OrderPage struct {
	Orders   []AdminOrder `json:"orders"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// Gig scopes for the technician job list
const (
	GigScopeActive  = "active"
	GigScopeHistory = "history"
)

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Items").Preload("Address").Preload("Photos")
}

// redactCosts clears the internal cost bookkeeping
func redactCosts(o *models.Order) {
	o.PartPrice = decimal.NullDecimal{}
	o.TravelCosts = decimal.NullDecimal{}
	o.MiscellaneousCost = decimal.NullDecimal{}
	o.MiscellaneousDescription = nil
}

func toCustomerOrder(o models.Order) CustomerOrder {
	redactCosts(&o)
	out := CustomerOrder{Order: o}
	if o.TechnicianID != nil && !o.Status.Terminal() {
		out.CompletionCode = o.CompletionOTP
		out.CompletionCodeExpiresAt = o.CompletionOTPExpiresAt
	}
	return out
}

func toAdminOrder(o models.Order) AdminOrder {
	out := AdminOrder{
		Order:          o,
		SubtotalAmount: o.SubtotalAmount(),
		TotalCosts:     o.TotalCosts(),
		Profit:         o.Profit(),
	}
	if !o.Status.Terminal() {
		out.CompletionCode = o.CompletionOTP
		out.CompletionCodeExpiresAt = o.CompletionOTPExpiresAt
	}
	return out
}

// GigView is the technician's view of o
func GigView(o models.Order) Gig {
	redactCosts(&o)
	return Gig{Order: o}
}

// ListForCustomer returns the user's orders, newest first
func (s *OrderService) ListForCustomer(ctx context.Context, userID string) ([]CustomerOrder, error) {
	var orders []models.Order
	err := withDetails(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]CustomerOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, toCustomerOrder(o))
	}
	return out, nil
}

// GetForCustomer returns one of the user's orders; other users' orders are not found
func (s *OrderService) GetForCustomer(ctx context.Context, orderID uint, userID string) (*CustomerOrder, error) {
	var order models.Order
	err := withDetails(s.db.WithContext(ctx)).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	out := toCustomerOrder(order)
	return &out, nil
}

// ListForAdmin returns a page of orders, optionally filtered by status
func (s *OrderService) ListForAdmin(ctx context.Context, f AdminOrderFilter) (*OrderPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ValidationError("Invalid request data", map[string]string{"status": "Unknown order status"})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}

	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Order{})
		if f.Status != "" {
			query = query.Where("status = ?", f.Status)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := filtered().
		Preload("Customer").Preload("Technician").Preload("Address").Preload("Items").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	page := &OrderPage{Orders: make([]AdminOrder, 0, len(orders)), Total: total, Page: f.Page, PageSize: f.PageSize}
	for _, o := range orders {
		page.Orders = append(page.Orders, toAdminOrder(o))
	}
	return page, nil
}

// GetForAdmin returns one order with everything attached
func (s *OrderService) GetForAdmin(ctx context.Context, orderID uint) (*AdminOrder, error) {
	var order models.Order
	err := withDetails(s.db.WithContext(ctx)).
		Preload("Customer").Preload("Technician").Preload("AppliedCoupon").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	out := toAdminOrder(order)
	return &out, nil
}

// ListGigs returns the technician's open jobs or their finished ones
func (s *OrderService) ListGigs(ctx context.Context, technicianID, scope string) ([]Gig, error) {
	query := withDetails(s.db.WithContext(ctx)).Preload("Customer").Where("technician_id = ?", technicianID)

	switch scope {
	case "", GigScopeActive:
		query = query.Where("status IN ?", models.PendingOrderStatuses).Order("created_at ASC")
	case GigScopeHistory:
		query = query.Where("status IN ?", []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).Order("updated_at DESC")
	default:
		return nil, ValidationError("Invalid request data", map[string]string{"status": "Must be active or history"})
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list gigs: %w", err)
	}

	gigs := make([]Gig, 0, len(orders))
	for _, o := range orders {
		gigs = append(gigs, GigView(o))
	}
	return gigs, nil
}

// GetGig returns one job assigned to the technician
func (s *OrderService) GetGig(ctx context.Context, orderID uint, technicianID string) (*Gig, error) {
	var order models.Order
	err := withDetails(s.db.WithContext(ctx)).Preload("Customer").
		Where("id = ? AND technician_id = ?", orderID, technicianID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("GIG_NOT_FOUND", "Gig not found")
		}
		return nil, fmt.Errorf("failed to load gig: %w", err)
	}
	gig := GigView(order)
	return &gig, nil
}
