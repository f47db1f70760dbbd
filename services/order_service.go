package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxCompletionPhotos bounds the photos attached at completion
const MaxCompletionPhotos = 10

// GenerateOTP returns a uniformly random 6 digit code
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OrderService drives the order lifecycle. Every transition is a conditional
// UPDATE on the expected current state so concurrent callers cannot both win.
type OrderService struct {
	db     *gorm.DB
	events events.Publisher
	logger zerolog.Logger
	otpTTL time.Duration
	now    func() time.Time
	newOTP func() (string, error)
}

// NewOrderService creates the lifecycle service
func NewOrderService(db *gorm.DB, publisher events.Publisher, otpTTL time.Duration, logger zerolog.Logger) *OrderService {
	return &OrderService{
		db:     db,
		events: publisher,
		logger: logger,
		otpTTL: otpTTL,
		now:    time.Now,
		newOTP: GenerateOTP,
	}
}

func (s *OrderService) load(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func invalidTransition(order *models.Order, action string) *Error {
	return Conflict("INVALID_STATUS_TRANSITION", fmt.Sprintf("Cannot %s an order that is %s", action, order.Status))
}

// explain turns a zero-row conditional update into the most specific error
func (s *OrderService) explain(db *gorm.DB, orderID uint, technicianID, action string) error {
	order, err := s.load(db, orderID)
	if err != nil {
		return err
	}
	if technicianID != "" && !order.IsAssignedTo(technicianID) {
		return Forbidden("You are not assigned to this order")
	}
	return invalidTransition(order, action)
}

// Assign gives an unassigned, open order to an active technician and issues
// the completion OTP the customer will hand over at the end of the job
func (s *OrderService) Assign(ctx context.Context, orderID uint, technicianUserID, adminID string) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	order, err := s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, invalidTransition(order, "assign")
	}
	if order.TechnicianID != nil {
		return nil, Conflict("ALREADY_ASSIGNED", "Order already has a technician")
	}

	var tech models.Technician
	if err := db.Preload("User").Where("user_id = ?", technicianUserID).First(&tech).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("TECHNICIAN_NOT_FOUND", "Technician not found")
		}
		return nil, fmt.Errorf("failed to load technician: %w", err)
	}
	if tech.Status != models.TechnicianActive || tech.User.Role != models.RoleTechnician {
		return nil, Conflict("TECHNICIAN_UNAVAILABLE", "Technician is not active")
	}

	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.otpTTL)

	res := db.Model(&models.Order{}).
		Where("id = ? AND technician_id IS NULL AND status NOT IN ?", orderID, []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
		Updates(map[string]interface{}{
			"technician_id":             technicianUserID,
			"completion_otp":            otp,
			"completion_otp_expires_at": expiresAt,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to assign order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, Conflict("ALREADY_ASSIGNED", "Order was assigned or closed concurrently")
	}

	order, err = s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_number", order.OrderNumber).Str("technician_id", technicianUserID).Str("admin_id", adminID).Msg("order assigned")
	publish(ctx, s.events, s.logger, events.OrderAssigned, order, adminID)
	return order, nil
}

// CompletionOTP is a freshly generated completion code
type CompletionOTP struct {
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegenerateOTP replaces the completion OTP of an assigned, open order
func (s *OrderService) RegenerateOTP(ctx context.Context, orderID uint) (*CompletionOTP, error) {
	db := s.db.WithContext(ctx)

	otp, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.otpTTL)

	res := db.Model(&models.Order{}).
		Where("id = ? AND technician_id IS NOT NULL AND status NOT IN ?", orderID, []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
		Updates(map[string]interface{}{
			"completion_otp":            otp,
			"completion_otp_expires_at": expiresAt,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to regenerate OTP: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		order, err := s.load(db, orderID)
		if err != nil {
			return nil, err
		}
		if order.TechnicianID == nil {
			return nil, Conflict("NOT_ASSIGNED", "Order has no technician yet")
		}
		return nil, invalidTransition(order, "regenerate the OTP of")
	}
	return &CompletionOTP{OTP: otp, ExpiresAt: expiresAt}, nil
}

// ConfirmPayment moves a pending_payment order to confirmed
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uint, adminID string) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderPendingPayment).
		Updates(map[string]interface{}{
			"status":       models.OrderConfirmed,
			"confirmed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to confirm order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.explain(db, orderID, "", "confirm payment for")
	}

	order, err := s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, events.OrderConfirmed, order, adminID)
	return order, nil
}

// Start moves a confirmed order to in_progress for its assigned technician
func (s *OrderService) Start(ctx context.Context, orderID uint, technicianID string) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	order, err := s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsAssignedTo(technicianID) {
		return nil, Forbidden("You are not assigned to this order")
	}
	if !order.Status.CanTransitionTo(models.OrderInProgress) {
		return nil, invalidTransition(order, "start")
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND technician_id = ?", orderID, models.OrderConfirmed, technicianID).
		Updates(map[string]interface{}{
			"status":     models.OrderInProgress,
			"updated_at": s.now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to start order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.explain(db, orderID, technicianID, "start")
	}

	order, err = s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, events.OrderStarted, order, technicianID)
	return order, nil
}

// CompleteInput is a technician's completion request
type CompleteInput struct {
	OrderID      uint
	TechnicianID string
	OTP          string
	Notes        *string
	Photos       []string
}

// Complete finishes an in_progress order once the customer's OTP checks out.
// A wrong or expired OTP changes nothing.
func (s *OrderService) Complete(ctx context.Context, in CompleteInput) (*models.Order, error) {
	if len(in.Photos) > MaxCompletionPhotos {
		return nil, ValidationError("Invalid request data", map[string]string{
			"photos": fmt.Sprintf("At most %d photos can be attached", MaxCompletionPhotos),
		})
	}

	db := s.db.WithContext(ctx)
	order, err := s.load(db, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsAssignedTo(in.TechnicianID) {
		return nil, Forbidden("You are not assigned to this order")
	}
	if !order.Status.CanTransitionTo(models.OrderCompleted) {
		return nil, invalidTransition(order, "complete")
	}

	otp := strings.TrimSpace(in.OTP)
	if order.CompletionOTP == nil || subtle.ConstantTimeCompare([]byte(otp), []byte(*order.CompletionOTP)) != 1 {
		return nil, BadRequest("INVALID_OTP", "Invalid OTP")
	}
	now := s.now().UTC()
	if order.CompletionOTPExpiresAt == nil || !now.Before(*order.CompletionOTPExpiresAt) {
		return nil, BadRequest("OTP_EXPIRED", "OTP expired")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":                    models.OrderCompleted,
			"completed_at":              now,
			"completed_by_user_id":      in.TechnicianID,
			"completion_otp":            nil,
			"completion_otp_expires_at": nil,
			"updated_at":                now,
		}
		if in.Notes != nil {
			updates["technician_notes"] = strings.TrimSpace(*in.Notes)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND technician_id = ? AND completion_otp = ?", in.OrderID, models.OrderInProgress, in.TechnicianID, otp).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to complete order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.explain(tx, in.OrderID, in.TechnicianID, "complete")
		}

		if len(in.Photos) > 0 {
			photos := make([]models.OrderPhoto, 0, len(in.Photos))
			for _, url := range in.Photos {
				photos = append(photos, models.OrderPhoto{OrderID: in.OrderID, URL: url})
			}
			if err := tx.Create(&photos).Error; err != nil {
				return fmt.Errorf("failed to attach photos: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = s.load(db.Preload("Photos"), in.OrderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_number", order.OrderNumber).Str("technician_id", in.TechnicianID).Msg("order completed by technician")
	publish(ctx, s.events, s.logger, events.OrderCompleted, order, in.TechnicianID)
	return order, nil
}

// CostsInput is the admin's cost breakdown for a job
type CostsInput struct {
	PartPrice                *decimal.Decimal `json:"part_price" binding:"required"`
	TravelCosts              *decimal.Decimal `json:"travel_costs" binding:"required"`
	MiscellaneousCost        *decimal.Decimal `json:"miscellaneous_cost" binding:"required"`
	MiscellaneousDescription *string          `json:"miscellaneous_description" binding:"omitempty,max=512"`
}

func (in CostsInput) validate() error {
	fields := map[string]string{}
	check := func(name string, v *decimal.Decimal) {
		if v == nil {
			fields[name] = "This field is required"
		} else if v.IsNegative() {
			fields[name] = "Must not be negative"
		}
	}
	check("part_price", in.PartPrice)
	check("travel_costs", in.TravelCosts)
	check("miscellaneous_cost", in.MiscellaneousCost)

	if in.MiscellaneousCost != nil && in.MiscellaneousCost.IsPositive() &&
		(in.MiscellaneousDescription == nil || strings.TrimSpace(*in.MiscellaneousDescription) == "") {
		fields["miscellaneous_description"] = "Describe the miscellaneous cost"
	}

	if len(fields) > 0 {
		return ValidationError("Invalid cost breakdown", fields)
	}
	return nil
}

// CompleteWithCosts records the job's costs. An in_progress order is
// completed by the admin; an already completed order only gets its costs set.
func (s *OrderService) CompleteWithCosts(ctx context.Context, orderID uint, adminID string, in CostsInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	order, err := s.load(db, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"part_price":         in.PartPrice.Round(2),
		"travel_costs":       in.TravelCosts.Round(2),
		"miscellaneous_cost": in.MiscellaneousCost.Round(2),
		"updated_at":         now,
	}
	if in.MiscellaneousDescription != nil && strings.TrimSpace(*in.MiscellaneousDescription) != "" {
		updates["miscellaneous_description"] = strings.TrimSpace(*in.MiscellaneousDescription)
	} else {
		updates["miscellaneous_description"] = nil
	}

	transition := false
	switch order.Status {
	case models.OrderInProgress:
		transition = true
		updates["status"] = models.OrderCompleted
		updates["completed_at"] = now
		updates["completed_by_user_id"] = adminID
		updates["completion_otp"] = nil
		updates["completion_otp_expires_at"] = nil
	case models.OrderCompleted:
	default:
		return nil, invalidTransition(order, "complete")
	}

	res := db.Model(&models.Order{}).Where("id = ? AND status = ?", orderID, order.Status).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record costs: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.explain(db, orderID, "", "complete")
	}

	order, err = s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	if transition {
		publish(ctx, s.events, s.logger, events.OrderCompleted, order, adminID)
	}
	return order, nil
}

// Cancel moves any open order to cancelled
func (s *OrderService) Cancel(ctx context.Context, orderID uint, adminID, reason string) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	updates := map[string]interface{}{
		"status":                    models.OrderCancelled,
		"cancelled_at":              now,
		"completion_otp":            nil,
		"completion_otp_expires_at": nil,
		"updated_at":                now,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["cancellation_reason"] = reason
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ? AND status IN ?", orderID, models.PendingOrderStatuses).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.explain(tx, orderID, "", "cancel")
		}

		// a cancelled order gives its coupon redemption back
		if err := tx.Where("order_id = ?", orderID).Delete(&models.CouponUsage{}).Error; err != nil {
			return fmt.Errorf("failed to release coupon usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.load(db, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_number", order.OrderNumber).Str("admin_id", adminID).Msg("order cancelled")
	publish(ctx, s.events, s.logger, events.OrderCancelled, order, adminID)
	return order, nil
}
