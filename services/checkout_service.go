package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutItem identifies one repair in the cart. The price is optional and
// only used to detect a stale cart.
type CheckoutItem struct {
	ModelID uint             `json:"model_id" binding:"required"`
	IssueID uint             `json:"issue_id" binding:"required"`
	Grade   string           `json:"grade" binding:"required,oneof=OEM Aftermarket"`
	Price   *decimal.Decimal `json:"price"`
}

// CheckoutAddress is the contact and delivery address for one order
type CheckoutAddress struct {
	FullName             string `json:"full_name" binding:"required,min=2,max=256"`
	PhoneNumber          string `json:"phone_number" binding:"required,min=10,max=32"`
	Email                string `json:"email" binding:"omitempty,email"`
	AlternatePhoneNumber string `json:"alternate_phone_number" binding:"omitempty,max=32"`
	FlatAndStreet        string `json:"flat_and_street" binding:"required,min=5,max=512"`
	Landmark             string `json:"landmark" binding:"omitempty,max=256"`
	Pincode              string `json:"pincode" binding:"required,len=6,numeric"`
}

// CreateOrderInput is a checkout submission
type CreateOrderInput struct {
	Items       []CheckoutItem     `json:"items" binding:"required,min=1,max=20,dive"`
	Address     CheckoutAddress    `json:"address" binding:"required"`
	ServiceMode models.ServiceMode `json:"service_mode" binding:"required,oneof=doorstep carry_in"`
	TimeSlot    string             `json:"time_slot" binding:"omitempty,max=128"`
	CouponCode  string             `json:"coupon_code" binding:"omitempty,max=32"`
}

// CreateOrderResult is returned to the customer after checkout
type CreateOrderResult struct {
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	Status         models.OrderStatus `json:"status"`
	SubtotalAmount decimal.Decimal    `json:"subtotal_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	ServiceUpgrade *string            `json:"service_upgrade,omitempty"`
}

// CheckoutService turns a cart into an order
type CheckoutService struct {
	db            *gorm.DB
	coupons       *CouponService
	events        events.Publisher
	logger        zerolog.Logger
	initialStatus models.OrderStatus
	now           func() time.Time
	newNumber     func(time.Time) string
}

// NewCheckoutService creates a checkout service. initialStatus is either
// confirmed or pending_payment.
func NewCheckoutService(db *gorm.DB, coupons *CouponService, publisher events.Publisher, initialStatus models.OrderStatus, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		db:            db,
		coupons:       coupons,
		events:        publisher,
		logger:        logger,
		initialStatus: initialStatus,
		now:           time.Now,
		newNumber:     NewOrderNumber,
	}
}

// orderNumberAttempts bounds redraws of a colliding order number
const orderNumberAttempts = 5

// NewOrderNumber returns a display code like PP-20250314-3FA9C1
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PP-%s-%s", now.UTC().Format("20060102"), suffix)
}

type pricedItem struct {
	item      models.OrderItem
	brandID   uint
	modelID   uint
	listPrice decimal.Decimal
}

// price re-prices every cart line from the catalog
func (s *CheckoutService) price(tx *gorm.DB, items []CheckoutItem) ([]pricedItem, error) {
	priced := make([]pricedItem, 0, len(items))
	fields := map[string]string{}

	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)

		var mi models.ModelIssue
		err := tx.Preload("Issue").Where("model_id = ? AND issue_id = ?", it.ModelID, it.IssueID).First(&mi).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fields[field] = "This repair is not offered for the selected model"
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load price: %w", err)
		}

		price, offered := mi.PriceFor(it.Grade)
		if !offered {
			fields[field+".grade"] = fmt.Sprintf("%s parts are not offered for this repair", it.Grade)
			continue
		}
		if it.Price != nil && !it.Price.Equal(price) {
			return nil, Conflict("PRICE_MISMATCH", "Prices have changed since the cart was filled; please review your cart")
		}

		var model models.DeviceModel
		if err := tx.Preload("Brand").First(&model, it.ModelID).Error; err != nil {
			return nil, fmt.Errorf("failed to load model: %w", err)
		}

		modelName := model.Name
		if model.Brand != nil {
			modelName = model.Brand.Name + " " + model.Name
		}
		issueName := ""
		if mi.Issue != nil {
			issueName = mi.Issue.Name
		}

		priced = append(priced, pricedItem{
			item: models.OrderItem{
				IssueName:          issueName,
				ModelName:          modelName,
				Grade:              it.Grade,
				PriceAtTimeOfOrder: price,
			},
			brandID:   model.BrandID,
			modelID:   model.ID,
			listPrice: price,
		})
	}

	if len(fields) > 0 {
		return nil, ValidationError("Some items cannot be ordered", fields)
	}
	return priced, nil
}

// CreateOrder prices the cart, applies the coupon and writes the order, its
// items, address and coupon redemption in one transaction
func (s *CheckoutService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, ValidationError("Invalid request data", map[string]string{"items": "At least one item is required"})
	}
	if !in.ServiceMode.Valid() {
		return nil, ValidationError("Invalid request data", map[string]string{"service_mode": "Unknown service mode"})
	}

	var order models.Order
	var result CreateOrderResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		priced, err := s.price(tx, in.Items)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		brandIDs := make([]uint, 0, len(priced))
		modelIDs := make([]uint, 0, len(priced))
		for _, p := range priced {
			subtotal = subtotal.Add(p.listPrice)
			brandIDs = append(brandIDs, p.brandID)
			modelIDs = append(modelIDs, p.modelID)
		}

		now := s.now().UTC()
		order = models.Order{
			UserID:         userID,
			Status:         s.initialStatus,
			TotalAmount:    subtotal,
			DiscountAmount: decimal.Zero,
			ServiceMode:    in.ServiceMode,
			TimeSlot:       in.TimeSlot,
		}
		if s.initialStatus == models.OrderConfirmed {
			order.ConfirmedAt = &now
		}

		var coupon *CouponResult
		if strings.TrimSpace(in.CouponCode) != "" {
			coupon, err = s.coupons.ValidateTx(tx, CouponQuery{
				Code:        in.CouponCode,
				OrderAmount: subtotal,
				ServiceMode: in.ServiceMode,
				BrandIDs:    brandIDs,
				ModelIDs:    modelIDs,
				UserID:      userID,
			}, true)
			if err != nil {
				return err
			}
			if !coupon.Valid {
				return BadRequest("COUPON_INVALID", coupon.Message)
			}

			order.AppliedCouponID = &coupon.Coupon.ID
			order.DiscountAmount = coupon.DiscountAmount
			order.TotalAmount = coupon.FinalAmount
			if coupon.ServiceUpgrade != "" {
				upgrade := coupon.ServiceUpgrade
				order.ServiceUpgrade = &upgrade
				if upgrade == models.UpgradeNames[models.UpgradeCarryInToDoorstep] {
					order.ServiceMode = models.ServiceDoorstep
				}
			}
		}

		if err := s.insertOrder(tx, &order, now); err != nil {
			return err
		}

		address := models.Address{
			OrderID:              order.ID,
			FullName:             strings.TrimSpace(in.Address.FullName),
			PhoneNumber:          strings.TrimSpace(in.Address.PhoneNumber),
			Email:                strings.TrimSpace(in.Address.Email),
			AlternatePhoneNumber: strings.TrimSpace(in.Address.AlternatePhoneNumber),
			FlatAndStreet:        strings.TrimSpace(in.Address.FlatAndStreet),
			Landmark:             strings.TrimSpace(in.Address.Landmark),
			Pincode:              in.Address.Pincode,
		}
		if err := tx.Create(&address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}

		items := make([]models.OrderItem, 0, len(priced))
		for _, p := range priced {
			item := p.item
			item.OrderID = order.ID
			items = append(items, item)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		if coupon != nil {
			usage := models.CouponUsage{
				CouponID:                  coupon.Coupon.ID,
				OrderID:                   order.ID,
				UserID:                    userID,
				DiscountAmount:            coupon.DiscountAmount,
				OrderAmountBeforeDiscount: subtotal,
				OrderAmountAfterDiscount:  coupon.FinalAmount,
				UsedAt:                    now,
			}
			if err := tx.Create(&usage).Error; err != nil {
				return fmt.Errorf("failed to record coupon usage: %w", err)
			}
		}

		result = CreateOrderResult{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			Status:         order.Status,
			SubtotalAmount: subtotal,
			DiscountAmount: order.DiscountAmount,
			TotalAmount:    order.TotalAmount,
			ServiceUpgrade: order.ServiceUpgrade,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_number", order.OrderNumber).Str("user_id", userID).Str("total", order.TotalAmount.StringFixed(2)).Msg("order created")
	publish(ctx, s.events, s.logger, events.OrderCreated, &order, userID)

	return &result, nil
}

// insertOrder creates order under a fresh number, drawing again when the
// random suffix collides with an existing order
func (s *CheckoutService) insertOrder(tx *gorm.DB, order *models.Order, now time.Time) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.newNumber(now)
		if err := tx.SavePoint("order_number").Error; err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		err := tx.Create(order).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == orderNumberAttempts {
			return fmt.Errorf("failed to create order: %w", err)
		}

		s.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, drawing another")
		if err := tx.RollbackTo("order_number").Error; err != nil {
			return fmt.Errorf("failed to roll back to savepoint: %w", err)
		}
		order.ID = 0
	}
}

// publish emits an order event after commit; failures are logged only
func publish(ctx context.Context, publisher events.Publisher, logger zerolog.Logger, eventType string, order *models.Order, actorID string) {
	event := events.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		UserID:      order.UserID,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
	if order.TechnicianID != nil {
		event.TechnicianID = *order.TechnicianID
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Str("order_number", order.OrderNumber).Msg("order event not delivered")
	}
}
