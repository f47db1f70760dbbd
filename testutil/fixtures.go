package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var phoneSeq atomic.Int64

// NextPhone returns a unique valid 10-digit phone number
func NextPhone() string {
	return fmt.Sprintf("98%08d", phoneSeq.Add(1))
}

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	name := fmt.Sprintf("%s user", role)
	user := &models.User{PhoneNumber: NextPhone(), Name: &name, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateTechnician inserts a technician user and roster row
func CreateTechnician(t *testing.T, db *gorm.DB, status models.TechnicianStatus) (*models.User, *models.Technician) {
	t.Helper()

	user := CreateUser(t, db, models.RoleTechnician)
	tech := &models.Technician{UserID: user.ID, Status: status}
	if err := db.Create(tech).Error; err != nil {
		t.Fatalf("Failed to create technician: %v", err)
	}
	return user, tech
}

// Catalog is a small seeded catalog: one brand, one model, two issues
type Catalog struct {
	Brand       models.Brand
	Model       models.DeviceModel
	Screen      models.Issue
	Battery     models.Issue
	ScreenPrice models.ModelIssue
	// battery is offered in Aftermarket only
	BatteryPrice models.ModelIssue
}

// SeedCatalog inserts Apple / iPhone 13 with screen (OEM 8000, Aftermarket 4500)
// and battery (Aftermarket 2500) repairs
func SeedCatalog(t *testing.T, db *gorm.DB) *Catalog {
	t.Helper()

	c := &Catalog{
		Brand:   models.Brand{Name: "Apple"},
		Screen:  models.Issue{Name: "Screen Replacement"},
		Battery: models.Issue{Name: "Battery Replacement"},
	}
	mustCreate(t, db, &c.Brand)
	mustCreate(t, db, &c.Screen)
	mustCreate(t, db, &c.Battery)

	c.Model = models.DeviceModel{BrandID: c.Brand.ID, Name: "iPhone 13"}
	mustCreate(t, db, &c.Model)

	c.ScreenPrice = models.ModelIssue{
		ModelID:          c.Model.ID,
		IssueID:          c.Screen.ID,
		PriceOriginal:    decimal.NewNullDecimal(decimal.NewFromInt(8000)),
		PriceAftermarket: decimal.NewNullDecimal(decimal.NewFromInt(4500)),
	}
	mustCreate(t, db, &c.ScreenPrice)

	c.BatteryPrice = models.ModelIssue{
		ModelID:          c.Model.ID,
		IssueID:          c.Battery.ID,
		PriceAftermarket: decimal.NewNullDecimal(decimal.NewFromInt(2500)),
	}
	mustCreate(t, db, &c.BatteryPrice)

	return c
}

// CouponOption customises CreateCoupon
type CouponOption func(*models.Coupon)

// CreateCoupon inserts an active coupon valid from yesterday for a month
func CreateCoupon(t *testing.T, db *gorm.DB, code string, typ models.CouponType, value int64, opts ...CouponOption) *models.Coupon {
	t.Helper()

	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:             code,
		Name:             code,
		Type:             typ,
		Value:            decimal.NewFromInt(value),
		ValidFrom:        now.Add(-24 * time.Hour),
		ValidUntil:       now.Add(30 * 24 * time.Hour),
		Status:           models.CouponActive,
		CreatedByAdminID: "admin",
	}
	for _, opt := range opts {
		opt(coupon)
	}
	mustCreate(t, db, coupon)
	return coupon
}

// OrderOption customises CreateOrder
type OrderOption func(*models.Order)

// WithStatus sets the order status
func WithStatus(status models.OrderStatus) OrderOption {
	return func(o *models.Order) { o.Status = status }
}

// WithTechnician assigns the order with a completion code
func WithTechnician(techID, otp string, expiresAt time.Time) OrderOption {
	return func(o *models.Order) {
		o.TechnicianID = &techID
		o.CompletionOTP = &otp
		o.CompletionOTPExpiresAt = &expiresAt
	}
}

// CreateOrder inserts an order for userID with one item and an address
func CreateOrder(t *testing.T, db *gorm.DB, userID string, total int64, opts ...OrderOption) *models.Order {
	t.Helper()

	now := time.Now().UTC()
	order := &models.Order{
		OrderNumber: fmt.Sprintf("PP-%s-%06X", now.Format("20060102"), phoneSeq.Add(1)),
		UserID:      userID,
		Status:      models.OrderConfirmed,
		TotalAmount: decimal.NewFromInt(total),
		ServiceMode: models.ServiceDoorstep,
		TimeSlot:    "10:00-12:00",
		ConfirmedAt: &now,
		Items: []models.OrderItem{{
			IssueName:          "Screen Replacement",
			ModelName:          "Apple iPhone 13",
			Grade:              models.GradeOEM,
			PriceAtTimeOfOrder: decimal.NewFromInt(total),
		}},
		Address: &models.Address{
			FullName:      "Asha Rao",
			PhoneNumber:   "9876543210",
			FlatAndStreet: "12 MG Road",
			Pincode:       "560001",
		},
	}
	for _, opt := range opts {
		opt(order)
	}
	mustCreate(t, db, order)
	return order
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("Failed to create fixture %T: %v", value, err)
	}
}
