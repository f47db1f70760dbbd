package services

import (
	"testing"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func intPtr(v int) *int {
	return &v
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name         string
		coupon       models.Coupon
		amount       int64
		wantDiscount int64
		wantUpgrade  string
	}{
		{
			name:         "percentage",
			coupon:       models.Coupon{Type: models.CouponPercentage, Value: dec(10)},
			amount:       1000,
			wantDiscount: 100,
		},
		{
			name: "percentage capped by maximum discount",
			coupon: models.Coupon{
				Type:            models.CouponPercentage,
				Value:           dec(50),
				MaximumDiscount: decimal.NewNullDecimal(dec(500)),
			},
			amount:       2000,
			wantDiscount: 500,
		},
		{
			name:         "fixed amount",
			coupon:       models.Coupon{Type: models.CouponFixedAmount, Value: dec(500)},
			amount:       8000,
			wantDiscount: 500,
		},
		{
			name:         "fixed amount never exceeds the order",
			coupon:       models.Coupon{Type: models.CouponFixedAmount, Value: dec(2000)},
			amount:       1500,
			wantDiscount: 1500,
		},
		{
			name:         "service upgrade carries no discount",
			coupon:       models.Coupon{Type: models.CouponServiceUpgrade, Value: dec(models.UpgradeCarryInToDoorstep)},
			amount:       3000,
			wantDiscount: 0,
			wantUpgrade:  "carry_in_to_doorstep",
		},
		{
			name:         "negative amount is treated as zero",
			coupon:       models.Coupon{Type: models.CouponFixedAmount, Value: dec(100)},
			amount:       -50,
			wantDiscount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, upgrade := CalculateDiscount(&tt.coupon, dec(tt.amount))
			assert.True(t, discount.Equal(dec(tt.wantDiscount)), "got discount %s", discount)
			assert.Equal(t, tt.wantUpgrade, upgrade)
		})
	}
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCouponCode("  save10 "))
	assert.Equal(t, "", NormalizeCouponCode("   "))
}

func TestCouponValidate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCouponService(db)
	ctx := t.Context()
	customer := testutil.CreateUser(t, db, models.RoleCustomer)

	testutil.CreateCoupon(t, db, "SAVE10", models.CouponPercentage, 10)
	testutil.CreateCoupon(t, db, "PAUSED", models.CouponPercentage, 10, func(c *models.Coupon) {
		c.Status = models.CouponInactive
	})
	testutil.CreateCoupon(t, db, "LATER", models.CouponPercentage, 10, func(c *models.Coupon) {
		c.ValidFrom = time.Now().UTC().Add(24 * time.Hour)
		c.ValidUntil = time.Now().UTC().Add(48 * time.Hour)
	})
	testutil.CreateCoupon(t, db, "OLD", models.CouponPercentage, 10, func(c *models.Coupon) {
		c.ValidFrom = time.Now().UTC().Add(-48 * time.Hour)
		c.ValidUntil = time.Now().UTC().Add(-24 * time.Hour)
	})
	testutil.CreateCoupon(t, db, "BIGSPEND", models.CouponFixedAmount, 300, func(c *models.Coupon) {
		c.MinimumOrderAmount = dec(5000)
	})
	testutil.CreateCoupon(t, db, "HOMEONLY", models.CouponFixedAmount, 200, func(c *models.Coupon) {
		c.ApplicableServiceModes = []string{string(models.ServiceDoorstep)}
	})
	testutil.CreateCoupon(t, db, "APPLE", models.CouponFixedAmount, 200, func(c *models.Coupon) {
		c.ApplicableBrandIDs = []uint{7}
	})

	base := CouponQuery{
		OrderAmount: dec(1000),
		ServiceMode: models.ServiceCarryIn,
		BrandIDs:    []uint{3},
		ModelIDs:    []uint{11},
		UserID:      customer.ID,
	}

	tests := []struct {
		name        string
		mutate      func(q *CouponQuery)
		wantValid   bool
		wantMessage string
	}{
		{"applies", func(q *CouponQuery) { q.Code = "save10" }, true, "Coupon applied"},
		{"blank code", func(q *CouponQuery) { q.Code = "  " }, false, "Invalid coupon code"},
		{"unknown code", func(q *CouponQuery) { q.Code = "NOPE" }, false, "Invalid coupon code"},
		{"inactive", func(q *CouponQuery) { q.Code = "PAUSED" }, false, "This coupon is not active"},
		{"not yet started", func(q *CouponQuery) { q.Code = "LATER" }, false, "This coupon is not yet active"},
		{"past its window", func(q *CouponQuery) { q.Code = "OLD" }, false, "This coupon has expired"},
		{"below minimum", func(q *CouponQuery) { q.Code = "BIGSPEND" }, false, "Minimum order amount of ₹5000.00 not met"},
		{"at minimum", func(q *CouponQuery) { q.Code = "BIGSPEND"; q.OrderAmount = dec(5000) }, true, "Coupon applied"},
		{"wrong service mode", func(q *CouponQuery) { q.Code = "HOMEONLY" }, false, "This coupon is not applicable to this service mode"},
		{"right service mode", func(q *CouponQuery) { q.Code = "HOMEONLY"; q.ServiceMode = models.ServiceDoorstep }, true, "Coupon applied"},
		{"brand filter misses", func(q *CouponQuery) { q.Code = "APPLE" }, false, "This coupon is not applicable to the selected items"},
		{"brand filter hits", func(q *CouponQuery) { q.Code = "APPLE"; q.BrandIDs = []uint{3, 7} }, true, "Coupon applied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			result, err := svc.Validate(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantMessage, result.Message)
			if !tt.wantValid {
				assert.Nil(t, result.Coupon)
			}
		})
	}

	t.Run("valid result carries amounts", func(t *testing.T) {
		q := base
		q.Code = "SAVE10"
		result, err := svc.Validate(ctx, q)
		require.NoError(t, err)
		assert.True(t, result.DiscountAmount.Equal(dec(100)))
		assert.True(t, result.FinalAmount.Equal(dec(900)))
		require.NotNil(t, result.Coupon)
		assert.Equal(t, "SAVE10", result.Coupon.Code)
	})
}

func TestCouponValidateStatusExpired(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCouponService(db)
	testutil.CreateCoupon(t, db, "GONE", models.CouponPercentage, 10, func(c *models.Coupon) {
		c.Status = models.CouponExpired
	})

	result, err := svc.Validate(t.Context(), CouponQuery{Code: "GONE", OrderAmount: dec(100)})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "This coupon has expired", result.Message)
}

func TestCouponUsageLimits(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCouponService(db)
	ctx := t.Context()

	first := testutil.CreateUser(t, db, models.RoleCustomer)
	second := testutil.CreateUser(t, db, models.RoleCustomer)
	third := testutil.CreateUser(t, db, models.RoleCustomer)

	coupon := testutil.CreateCoupon(t, db, "TWICE", models.CouponFixedAmount, 100, func(c *models.Coupon) {
		c.TotalUsageLimit = intPtr(2)
		c.PerUserUsageLimit = intPtr(1)
	})

	redeem := func(userID string) {
		order := testutil.CreateOrder(t, db, userID, 1000)
		require.NoError(t, db.Create(&models.CouponUsage{
			CouponID:                  coupon.ID,
			OrderID:                   order.ID,
			UserID:                    userID,
			DiscountAmount:            dec(100),
			OrderAmountBeforeDiscount: dec(1000),
			OrderAmountAfterDiscount:  dec(900),
			UsedAt:                    time.Now().UTC(),
		}).Error)
	}

	query := func(userID string) CouponQuery {
		return CouponQuery{Code: "TWICE", OrderAmount: dec(1000), UserID: userID}
	}

	redeem(first.ID)

	result, err := svc.Validate(ctx, query(first.ID))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "You have already used this coupon", result.Message)

	result, err = svc.Validate(ctx, query(""))
	require.NoError(t, err)
	assert.True(t, result.Valid, "anonymous validation skips the per-user limit")

	result, err = svc.Validate(ctx, query(second.ID))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	redeem(second.ID)

	result, err = svc.Validate(ctx, query(third.ID))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "This coupon has reached its usage limit", result.Message)

	summaries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(2), summaries[0].UsageCount)

	detail, err := svc.Get(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Usages, 2)
	assert.Equal(t, int64(2), detail.UsageCount)
}

func TestCouponCreate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCouponService(db)
	ctx := t.Context()

	now := time.Now().UTC()
	valid := func() CouponInput {
		v := dec(15)
		return CouponInput{
			Code:       " monsoon15 ",
			Name:       "Monsoon sale",
			Type:       models.CouponPercentage,
			Value:      &v,
			ValidFrom:  now,
			ValidUntil: now.Add(7 * 24 * time.Hour),
		}
	}

	coupon, err := svc.Create(ctx, valid(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "MONSOON15", coupon.Code)
	assert.Equal(t, models.CouponActive, coupon.Status)
	require.NotNil(t, coupon.PerUserUsageLimit)
	assert.Equal(t, 1, *coupon.PerUserUsageLimit, "defaults to one redemption per customer")
	assert.Equal(t, "admin-1", coupon.CreatedByAdminID)

	_, err = svc.Create(ctx, valid(), "admin-1")
	assert.True(t, HasCode(err, "DUPLICATE_CODE"))

	tests := []struct {
		name      string
		mutate    func(in *CouponInput)
		wantField string
	}{
		{"short code", func(in *CouponInput) { in.Code = "AB" }, "code"},
		{"code with spaces", func(in *CouponInput) { in.Code = "NO SPACES" }, "code"},
		{"percentage over 100", func(in *CouponInput) { v := dec(150); in.Value = &v }, "value"},
		{"zero percentage", func(in *CouponInput) { v := dec(0); in.Value = &v }, "value"},
		{"negative fixed amount", func(in *CouponInput) {
			in.Type = models.CouponFixedAmount
			v := dec(-1)
			in.Value = &v
		}, "value"},
		{"unknown upgrade", func(in *CouponInput) {
			in.Type = models.CouponServiceUpgrade
			v := dec(9)
			in.Value = &v
		}, "value"},
		{"negative minimum", func(in *CouponInput) { v := dec(-10); in.MinimumOrderAmount = &v }, "minimum_order_amount"},
		{"zero maximum discount", func(in *CouponInput) { v := dec(0); in.MaximumDiscount = &v }, "maximum_discount"},
		{"window ends before it starts", func(in *CouponInput) { in.ValidUntil = in.ValidFrom.Add(-time.Hour) }, "valid_until"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			in.Code = "OTHER1"
			tt.mutate(&in)
			_, err := svc.Create(ctx, in, "admin-1")
			svcErr, ok := AsError(err)
			require.True(t, ok, "expected a service error, got %v", err)
			assert.Equal(t, "VALIDATION_ERROR", svcErr.Code)
			assert.Contains(t, svcErr.Fields, tt.wantField)
		})
	}
}

func TestCouponUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCouponService(db)
	ctx := t.Context()

	coupon := testutil.CreateCoupon(t, db, "EDITME", models.CouponPercentage, 10)

	name := "Renamed"
	value := dec(20)
	inactive := models.CouponInactive
	updated, err := svc.Update(ctx, coupon.ID, CouponUpdate{Name: &name, Value: &value, Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Value.Equal(dec(20)))
	assert.Equal(t, models.CouponInactive, updated.Status)

	var stored models.Coupon
	require.NoError(t, db.First(&stored, coupon.ID).Error)
	assert.Equal(t, "Renamed", stored.Name)

	tooMuch := dec(101)
	_, err = svc.Update(ctx, coupon.ID, CouponUpdate{Value: &tooMuch})
	assert.True(t, HasCode(err, "VALIDATION_ERROR"))

	past := coupon.ValidFrom.Add(-time.Hour)
	_, err = svc.Update(ctx, coupon.ID, CouponUpdate{ValidUntil: &past})
	assert.True(t, HasCode(err, "VALIDATION_ERROR"))

	_, err = svc.Update(ctx, 9999, CouponUpdate{Name: &name})
	assert.True(t, HasCode(err, "COUPON_NOT_FOUND"))
}
