package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPendingPayment, OrderConfirmed, true},
		{OrderConfirmed, OrderInProgress, true},
		{OrderInProgress, OrderCompleted, true},
		{OrderConfirmed, OrderCompleted, false},
		{OrderInProgress, OrderConfirmed, false},
		{OrderPendingPayment, OrderInProgress, false},
		{OrderPendingPayment, OrderCancelled, true},
		{OrderInProgress, OrderCancelled, true},
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderConfirmed, false},
		{OrderConfirmed, "shipped", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, OrderCompleted.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderInProgress.Terminal())
	assert.True(t, OrderCancelled.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestOrderCostsAndProfit(t *testing.T) {
	order := Order{
		TotalAmount:    decimal.NewFromInt(2000),
		DiscountAmount: decimal.NewFromInt(200),
	}
	assert.True(t, order.TotalCosts().IsZero(), "unset costs count as zero")
	assert.True(t, order.Profit().Equal(decimal.NewFromInt(2000)))
	assert.True(t, order.SubtotalAmount().Equal(decimal.NewFromInt(2200)))

	order.PartPrice = decimal.NewNullDecimal(decimal.RequireFromString("750.50"))
	order.TravelCosts = decimal.NewNullDecimal(decimal.NewFromInt(100))
	assert.True(t, order.TotalCosts().Equal(decimal.RequireFromString("850.50")))
	assert.True(t, order.Profit().Equal(decimal.RequireFromString("1149.50")))

	order.MiscellaneousCost = decimal.NewNullDecimal(decimal.NewFromInt(1500))
	assert.True(t, order.Profit().IsNegative(), "a loss-making job reports negative profit")
}

func TestOrderIsAssignedTo(t *testing.T) {
	var order Order
	assert.False(t, order.IsAssignedTo("tech-1"))

	tech := "tech-1"
	order.TechnicianID = &tech
	assert.True(t, order.IsAssignedTo("tech-1"))
	assert.False(t, order.IsAssignedTo("tech-2"))
}

func TestModelIssuePriceFor(t *testing.T) {
	mi := ModelIssue{PriceAftermarket: decimal.NewNullDecimal(decimal.NewFromInt(2500))}

	price, ok := mi.PriceFor(GradeAftermarket)
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(2500)))

	_, ok = mi.PriceFor(GradeOEM)
	assert.False(t, ok)

	_, ok = mi.PriceFor("Refurbished")
	assert.False(t, ok)
}

func TestUserDisplayName(t *testing.T) {
	user := User{PhoneNumber: "9876543210"}
	assert.Equal(t, "9876543210", user.DisplayName())

	name := "Asha"
	user.Name = &name
	assert.Equal(t, "Asha", user.DisplayName())
}
