package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CouponType selects how a coupon's value is interpreted
type CouponType string

const (
	CouponPercentage     CouponType = "percentage"
	CouponFixedAmount    CouponType = "fixed_amount"
	CouponServiceUpgrade CouponType = "service_upgrade"
)

// Valid reports whether t is a known coupon type
func (t CouponType) Valid() bool {
	switch t {
	case CouponPercentage, CouponFixedAmount, CouponServiceUpgrade:
		return true
	}
	return false
}

// CouponStatus is the administrative state of a coupon
type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
	CouponExpired  CouponStatus = "expired"
)

// Valid reports whether s is a known coupon status
func (s CouponStatus) Valid() bool {
	switch s {
	case CouponActive, CouponInactive, CouponExpired:
		return true
	}
	return false
}

// Upgrade codes carried in the value of a service_upgrade coupon
const (
	UpgradeCarryInToDoorstep = 1
)

// UpgradeNames maps upgrade codes to the entitlement recorded on the order
var UpgradeNames = map[int64]string{
	UpgradeCarryInToDoorstep: "carry_in_to_doorstep",
}

// Coupon is a discount code. Percentage values are plain numbers (10 means 10%).
type Coupon struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	Code               string              `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name               string              `gorm:"size:256;not null" json:"name"`
	Description        *string             `json:"description"`
	Type               CouponType          `gorm:"size:32;not null" json:"type"`
	Value              decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"value"`
	MinimumOrderAmount decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"minimum_order_amount"`
	MaximumDiscount    decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"maximum_discount"`
	TotalUsageLimit    *int                `json:"total_usage_limit"`
	PerUserUsageLimit  *int                `json:"per_user_usage_limit"`
	ValidFrom          time.Time           `gorm:"not null" json:"valid_from"`
	ValidUntil         time.Time           `gorm:"not null" json:"valid_until"`
	Status             CouponStatus        `gorm:"size:16;not null;default:'active'" json:"status"`

	// Empty filters mean "applies to everything"
	ApplicableServiceModes datatypes.JSONSlice[string] `json:"applicable_service_modes"`
	ApplicableBrandIDs     datatypes.JSONSlice[uint]   `json:"applicable_brand_ids"`
	ApplicableModelIDs     datatypes.JSONSlice[uint]   `json:"applicable_model_ids"`

	CreatedByAdminID string    `gorm:"size:36;not null" json:"created_by_admin_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Coupon model
func (Coupon) TableName() string {
	return "coupons"
}

// CouponUsage is the redemption ledger. Usage limits are enforced by counting
// rows; the unique order index keeps one redemption per order.
type CouponUsage struct {
	ID                        uint            `gorm:"primaryKey" json:"id"`
	CouponID                  uint            `gorm:"not null;index" json:"coupon_id"`
	OrderID                   uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID                    string          `gorm:"size:36;not null;index" json:"user_id"`
	DiscountAmount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	OrderAmountBeforeDiscount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"order_amount_before_discount"`
	OrderAmountAfterDiscount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"order_amount_after_discount"`
	UsedAt                    time.Time       `gorm:"not null" json:"used_at"`
}

// TableName specifies the table name for the CouponUsage model
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
