package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	couponCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)
	hundred           = decimal.NewFromInt(100)
)

// CouponQuery is a prospective order to validate a coupon against
type CouponQuery struct {
	Code        string
	OrderAmount decimal.Decimal
	ServiceMode models.ServiceMode
	BrandIDs    []uint
	ModelIDs    []uint
	// UserID is empty for anonymous validation, which skips the per-user limit
	UserID string
}

// CouponResult is the outcome of a validation. Rejections are results, not errors.
type CouponResult struct {
	Valid          bool            `json:"valid"`
	Coupon         *models.Coupon  `json:"coupon,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	ServiceUpgrade string          `json:"service_upgrade,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// CouponService validates, prices and administers coupons
type CouponService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCouponService creates a coupon service
func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db, now: time.Now}
}

// NormalizeCouponCode upper-cases and trims a code
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CalculateDiscount returns the monetary discount of coupon on amount and the
// upgrade entitlement for service_upgrade coupons. The discount never exceeds amount.
func CalculateDiscount(coupon *models.Coupon, amount decimal.Decimal) (decimal.Decimal, string) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	var discount decimal.Decimal
	var upgrade string

	switch coupon.Type {
	case models.CouponPercentage:
		discount = amount.Mul(coupon.Value).Div(hundred)
		if coupon.MaximumDiscount.Valid {
			discount = decimal.Min(discount, coupon.MaximumDiscount.Decimal)
		}
	case models.CouponFixedAmount:
		discount = decimal.Min(coupon.Value, amount)
	case models.CouponServiceUpgrade:
		discount = decimal.Zero
		upgrade = models.UpgradeNames[coupon.Value.IntPart()]
	}

	discount = decimal.Max(decimal.Zero, decimal.Min(discount, amount))
	return discount.Round(2), upgrade
}

// Validate checks q against the stored coupon
func (s *CouponService) Validate(ctx context.Context, q CouponQuery) (*CouponResult, error) {
	return s.ValidateTx(s.db.WithContext(ctx), q, false)
}

func invalid(message string) *CouponResult {
	return &CouponResult{Valid: false, Message: message}
}

// ValidateTx runs the validation on tx. With lock set the coupon row is read
// FOR UPDATE so concurrent redemptions of the same coupon serialize on it.
func (s *CouponService) ValidateTx(tx *gorm.DB, q CouponQuery, lock bool) (*CouponResult, error) {
	code := NormalizeCouponCode(q.Code)
	if code == "" {
		return invalid("Invalid coupon code"), nil
	}

	query := tx
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var coupon models.Coupon
	if err := query.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("Invalid coupon code"), nil
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	now := s.now()
	switch {
	case coupon.Status == models.CouponExpired:
		return invalid("This coupon has expired"), nil
	case coupon.Status != models.CouponActive:
		return invalid("This coupon is not active"), nil
	case now.Before(coupon.ValidFrom):
		return invalid("This coupon is not yet active"), nil
	case now.After(coupon.ValidUntil):
		return invalid("This coupon has expired"), nil
	}

	if q.OrderAmount.LessThan(coupon.MinimumOrderAmount) {
		return invalid(fmt.Sprintf("Minimum order amount of ₹%s not met", coupon.MinimumOrderAmount.StringFixed(2))), nil
	}

	if coupon.TotalUsageLimit != nil {
		var used int64
		if err := tx.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&used).Error; err != nil {
			return nil, fmt.Errorf("failed to count coupon usage: %w", err)
		}
		if used >= int64(*coupon.TotalUsageLimit) {
			return invalid("This coupon has reached its usage limit"), nil
		}
	}

	if coupon.PerUserUsageLimit != nil && q.UserID != "" {
		var used int64
		if err := tx.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, q.UserID).Count(&used).Error; err != nil {
			return nil, fmt.Errorf("failed to count coupon usage: %w", err)
		}
		if used >= int64(*coupon.PerUserUsageLimit) {
			return invalid("You have already used this coupon"), nil
		}
	}

	if len(coupon.ApplicableServiceModes) > 0 && !containsString(coupon.ApplicableServiceModes, string(q.ServiceMode)) {
		return invalid("This coupon is not applicable to this service mode"), nil
	}

	if len(coupon.ApplicableBrandIDs) > 0 || len(coupon.ApplicableModelIDs) > 0 {
		if !intersects(coupon.ApplicableBrandIDs, q.BrandIDs) && !intersects(coupon.ApplicableModelIDs, q.ModelIDs) {
			return invalid("This coupon is not applicable to the selected items"), nil
		}
	}

	discount, upgrade := CalculateDiscount(&coupon, q.OrderAmount)
	return &CouponResult{
		Valid:          true,
		Coupon:         &coupon,
		DiscountAmount: discount,
		FinalAmount:    decimal.Max(decimal.Zero, q.OrderAmount.Sub(discount)),
		ServiceUpgrade: upgrade,
		Message:        "Coupon applied",
	}, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func intersects(filter, ids []uint) bool {
	for _, f := range filter {
		for _, id := range ids {
			if f == id {
				return true
			}
		}
	}
	return false
}

// CouponInput is the admin payload for creating a coupon
type CouponInput struct {
	Code                   string              `json:"code" binding:"required"`
	Name                   string              `json:"name" binding:"required,max=256"`
	Description            *string             `json:"description"`
	Type                   models.CouponType   `json:"type" binding:"required,oneof=percentage fixed_amount service_upgrade"`
	Value                  *decimal.Decimal    `json:"value" binding:"required"`
	MinimumOrderAmount     *decimal.Decimal    `json:"minimum_order_amount"`
	MaximumDiscount        *decimal.Decimal    `json:"maximum_discount"`
	TotalUsageLimit        *int                `json:"total_usage_limit" binding:"omitempty,min=1"`
	PerUserUsageLimit      *int                `json:"per_user_usage_limit" binding:"omitempty,min=1"`
	ValidFrom              time.Time           `json:"valid_from" binding:"required"`
	ValidUntil             time.Time           `json:"valid_until" binding:"required"`
	Status                 models.CouponStatus `json:"status" binding:"omitempty,oneof=active inactive expired"`
	ApplicableServiceModes []string            `json:"applicable_service_modes" binding:"omitempty,dive,oneof=doorstep carry_in"`
	ApplicableBrandIDs     []uint              `json:"applicable_brand_ids"`
	ApplicableModelIDs     []uint              `json:"applicable_model_ids"`
}

func validateCouponValue(fields map[string]string, couponType models.CouponType, value decimal.Decimal) {
	switch couponType {
	case models.CouponPercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			fields["value"] = "Percentage must be between 0 and 100"
		}
	case models.CouponFixedAmount:
		if !value.IsPositive() {
			fields["value"] = "Amount must be positive"
		}
	case models.CouponServiceUpgrade:
		if !value.IsInteger() || models.UpgradeNames[value.IntPart()] == "" {
			fields["value"] = "Unknown service upgrade code"
		}
	}
}

// Create stores a new coupon after validating its fields
func (s *CouponService) Create(ctx context.Context, in CouponInput, adminID string) (*models.Coupon, error) {
	fields := map[string]string{}

	code := NormalizeCouponCode(in.Code)
	if !couponCodePattern.MatchString(code) {
		fields["code"] = "Code must be 3-32 letters, digits, dashes or underscores"
	}
	if !in.Type.Valid() {
		fields["type"] = "Unknown coupon type"
	}
	if in.Value == nil {
		fields["value"] = "Value is required"
	} else {
		validateCouponValue(fields, in.Type, *in.Value)
	}
	if in.MinimumOrderAmount != nil && in.MinimumOrderAmount.IsNegative() {
		fields["minimum_order_amount"] = "Must not be negative"
	}
	if in.MaximumDiscount != nil && !in.MaximumDiscount.IsPositive() {
		fields["maximum_discount"] = "Must be positive"
	}
	if !in.ValidUntil.After(in.ValidFrom) {
		fields["valid_until"] = "Must be after valid_from"
	}
	if len(fields) > 0 {
		return nil, ValidationError("Invalid coupon", fields)
	}

	coupon := models.Coupon{
		Code:                   code,
		Name:                   in.Name,
		Description:            in.Description,
		Type:                   in.Type,
		Value:                  *in.Value,
		ValidFrom:              in.ValidFrom.UTC(),
		ValidUntil:             in.ValidUntil.UTC(),
		Status:                 models.CouponActive,
		TotalUsageLimit:        in.TotalUsageLimit,
		PerUserUsageLimit:      in.PerUserUsageLimit,
		ApplicableServiceModes: in.ApplicableServiceModes,
		ApplicableBrandIDs:     in.ApplicableBrandIDs,
		ApplicableModelIDs:     in.ApplicableModelIDs,
		CreatedByAdminID:       adminID,
	}
	if in.Status != "" {
		coupon.Status = in.Status
	}
	if in.MinimumOrderAmount != nil {
		coupon.MinimumOrderAmount = *in.MinimumOrderAmount
	}
	if in.MaximumDiscount != nil {
		coupon.MaximumDiscount = decimal.NewNullDecimal(*in.MaximumDiscount)
	}
	if coupon.PerUserUsageLimit == nil {
		one := 1
		coupon.PerUserUsageLimit = &one
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.Coupon{}).Where("code = ?", code).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check coupon code: %w", err)
	}
	if existing > 0 {
		return nil, Conflict("DUPLICATE_CODE", "A coupon with this code already exists")
	}

	if err := db.Create(&coupon).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return &coupon, nil
}

// CouponUpdate is the admin payload for editing a coupon; nil fields are left unchanged
type CouponUpdate struct {
	Name               *string              `json:"name" binding:"omitempty,max=256"`
	Description        *string              `json:"description"`
	Value              *decimal.Decimal     `json:"value"`
	MinimumOrderAmount *decimal.Decimal     `json:"minimum_order_amount"`
	MaximumDiscount    *decimal.Decimal     `json:"maximum_discount"`
	TotalUsageLimit    *int                 `json:"total_usage_limit" binding:"omitempty,min=1"`
	PerUserUsageLimit  *int                 `json:"per_user_usage_limit" binding:"omitempty,min=1"`
	ValidFrom          *time.Time           `json:"valid_from"`
	ValidUntil         *time.Time           `json:"valid_until"`
	Status             *models.CouponStatus `json:"status" binding:"omitempty,oneof=active inactive expired"`
}

// Update edits a coupon. Past redemptions keep the discount recorded at checkout.
func (s *CouponService) Update(ctx context.Context, id uint, in CouponUpdate) (*models.Coupon, error) {
	coupon, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if in.Name != nil {
		coupon.Name = *in.Name
	}
	if in.Description != nil {
		coupon.Description = in.Description
	}
	if in.Value != nil {
		validateCouponValue(fields, coupon.Type, *in.Value)
		coupon.Value = *in.Value
	}
	if in.MinimumOrderAmount != nil {
		if in.MinimumOrderAmount.IsNegative() {
			fields["minimum_order_amount"] = "Must not be negative"
		}
		coupon.MinimumOrderAmount = *in.MinimumOrderAmount
	}
	if in.MaximumDiscount != nil {
		if !in.MaximumDiscount.IsPositive() {
			fields["maximum_discount"] = "Must be positive"
		}
		coupon.MaximumDiscount = decimal.NewNullDecimal(*in.MaximumDiscount)
	}
	if in.TotalUsageLimit != nil {
		coupon.TotalUsageLimit = in.TotalUsageLimit
	}
	if in.PerUserUsageLimit != nil {
		coupon.PerUserUsageLimit = in.PerUserUsageLimit
	}
	if in.ValidFrom != nil {
		coupon.ValidFrom = in.ValidFrom.UTC()
	}
	if in.ValidUntil != nil {
		coupon.ValidUntil = in.ValidUntil.UTC()
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			fields["status"] = "Unknown status"
		}
		coupon.Status = *in.Status
	}
	if !coupon.ValidUntil.After(coupon.ValidFrom) {
		fields["valid_until"] = "Must be after valid_from"
	}
	if len(fields) > 0 {
		return nil, ValidationError("Invalid coupon", fields)
	}

	if err := s.db.WithContext(ctx).Save(coupon).Error; err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return coupon, nil
}

func (s *CouponService) find(db *gorm.DB, id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("COUPON_NOT_FOUND", "Coupon not found")
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	return &coupon, nil
}

// CouponSummary is a coupon with its redemption count
type CouponSummary struct {
	models.Coupon
	UsageCount int64 `json:"usage_count"`
}

// CouponDetail is a coupon with its full redemption ledger
type CouponDetail struct {
	CouponSummary
	Usages []models.CouponUsage `json:"usages"`
}

// List returns every coupon, newest first, with usage counts
func (s *CouponService) List(ctx context.Context) ([]CouponSummary, error) {
	db := s.db.WithContext(ctx)

	var coupons []models.Coupon
	if err := db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	var counts []struct {
		CouponID uint
		Count    int64
	}
	if err := db.Model(&models.CouponUsage{}).Select("coupon_id, COUNT(*) AS count").Group("coupon_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count coupon usage: %w", err)
	}
	byCoupon := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byCoupon[c.CouponID] = c.Count
	}

	out := make([]CouponSummary, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, CouponSummary{Coupon: c, UsageCount: byCoupon[c.ID]})
	}
	return out, nil
}

// Get returns one coupon with its ledger
func (s *CouponService) Get(ctx context.Context, id uint) (*CouponDetail, error) {
	db := s.db.WithContext(ctx)

	coupon, err := s.find(db, id)
	if err != nil {
		return nil, err
	}

	var usages []models.CouponUsage
	if err := db.Where("coupon_id = ?", id).Order("used_at DESC").Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("failed to load coupon usage: %w", err)
	}

	return &CouponDetail{
		CouponSummary: CouponSummary{Coupon: *coupon, UsageCount: int64(len(usages))},
		Usages:        usages,
	}, nil
}
