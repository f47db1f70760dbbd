package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a step of the order lifecycle:
// pending_payment -> confirmed -> in_progress -> completed, with cancelled
// reachable from any non-terminal step.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderInProgress     OrderStatus = "in_progress"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderPendingPayment: 0,
	OrderConfirmed:      1,
	OrderInProgress:     2,
	OrderCompleted:      3,
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderCancelled
}

// Terminal reports whether no further transition is possible from s
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo reports whether next is the single forward step after s,
// or a cancellation of a non-terminal order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	return ok && to == from+1
}

// PendingOrderStatuses are the non-terminal statuses
var PendingOrderStatuses = []OrderStatus{OrderPendingPayment, OrderConfirmed, OrderInProgress}

// ServiceMode is how the repair is delivered
type ServiceMode string

const (
	ServiceDoorstep ServiceMode = "doorstep"
	ServiceCarryIn  ServiceMode = "carry_in"
)

// Valid reports whether m is a known service mode
func (m ServiceMode) Valid() bool {
	return m == ServiceDoorstep || m == ServiceCarryIn
}

// Order represents a repair booking
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderNumber string          `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	UserID      string          `gorm:"size:36;not null;index" json:"user_id"`
	Customer    *User           `gorm:"foreignKey:UserID" json:"customer,omitempty"`
	Status      OrderStatus     `gorm:"size:32;not null;default:'pending_payment';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	ServiceMode ServiceMode     `gorm:"size:16;not null" json:"service_mode"`
	TimeSlot    string          `gorm:"size:128" json:"time_slot"`

	TechnicianID    *string `gorm:"size:36;index" json:"technician_id"`
	Technician      *User   `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	TechnicianNotes *string `json:"technician_notes"`

	// Never serialised directly; customers get it through a dedicated view.
	CompletionOTP          *string    `gorm:"size:12" json:"-"`
	CompletionOTPExpiresAt *time.Time `json:"-"`

	AppliedCouponID *uint           `gorm:"index" json:"applied_coupon_id"`
	AppliedCoupon   *Coupon         `gorm:"foreignKey:AppliedCouponID" json:"applied_coupon,omitempty"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	ServiceUpgrade  *string         `gorm:"size:64" json:"service_upgrade,omitempty"`

	PartPrice                decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"part_price"`
	TravelCosts              decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"travel_costs"`
	MiscellaneousCost        decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"miscellaneous_cost"`
	MiscellaneousDescription *string             `json:"miscellaneous_description"`

	ConfirmedAt        *time.Time `json:"confirmed_at"`
	CompletedAt        *time.Time `gorm:"index" json:"completed_at"`
	CompletedByUserID  *string    `gorm:"size:36" json:"completed_by_user_id"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`

	Address *Address     `gorm:"foreignKey:OrderID" json:"address,omitempty"`
	Items   []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Photos  []OrderPhoto `gorm:"foreignKey:OrderID" json:"photos,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// TotalCosts is part price + travel costs + miscellaneous cost; unset fields count as zero
func (o *Order) TotalCosts() decimal.Decimal {
	total := decimal.Zero
	for _, c := range []decimal.NullDecimal{o.PartPrice, o.TravelCosts, o.MiscellaneousCost} {
		if c.Valid {
			total = total.Add(c.Decimal)
		}
	}
	return total
}

// Profit is derived at read time and never stored
func (o *Order) Profit() decimal.Decimal {
	return o.TotalAmount.Sub(o.TotalCosts())
}

// SubtotalAmount is the order value before the coupon discount
func (o *Order) SubtotalAmount() decimal.Decimal {
	return o.TotalAmount.Add(o.DiscountAmount)
}

// IsAssignedTo reports whether userID is the assigned technician
func (o *Order) IsAssignedTo(userID string) bool {
	return o.TechnicianID != nil && *o.TechnicianID == userID
}

// OrderItem is a snapshot of one purchased repair. It is deliberately
// denormalised so later catalog price changes never touch past orders.
type OrderItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderID            uint            `gorm:"not null;index" json:"order_id"`
	IssueName          string          `gorm:"size:256;not null" json:"issue_name"`
	ModelName          string          `gorm:"size:512;not null" json:"model_name"`
	Grade              string          `gorm:"size:32;not null" json:"grade"`
	PriceAtTimeOfOrder decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_time_of_order"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// Address captures the contact details given at checkout, one per order
type Address struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	OrderID              uint   `gorm:"uniqueIndex;not null" json:"order_id"`
	FullName             string `gorm:"size:256;not null" json:"full_name"`
	PhoneNumber          string `gorm:"size:32;not null" json:"phone_number"`
	Email                string `gorm:"size:256;not null;default:''" json:"email"`
	AlternatePhoneNumber string `gorm:"size:32;not null;default:''" json:"alternate_phone_number"`
	FlatAndStreet        string `gorm:"size:512;not null" json:"flat_and_street"`
	Landmark             string `gorm:"size:256;not null;default:''" json:"landmark"`
	Pincode              string `gorm:"size:6;not null" json:"pincode"`
}

// TableName specifies the table name for the Address model
func (Address) TableName() string {
	return "addresses"
}

// OrderPhoto is a photo attached by the technician at completion
type OrderPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderPhoto model
func (OrderPhoto) TableName() string {
	return "order_photos"
}
