package types

import (
	"testing"

	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name        string
		order       Order
		shouldError bool
		code        errors.ErrorCode
	}{
		{name: "buy all cash", order: BuyFraction(1.0)},
		{name: "buy half cash", order: BuyFraction(0.5)},
		{name: "buy quantity", order: BuyQuantity(1000)},
		{name: "sell all", order: SellAll()},
		{name: "sell quantity with limit", order: SellQuantity(500).WithLimit(11.0)},
		{
			name:        "missing side",
			order:       Order{OrderType: OrderTypeMarket, Fraction: optional.Some(1.0)},
			shouldError: true,
			code:        errors.ErrCodeInvalidOrder,
		},
		{
			name:        "unknown order type",
			order:       Order{Side: PurchaseTypeBuy, OrderType: "STOP", Fraction: optional.Some(1.0)},
			shouldError: true,
			code:        errors.ErrCodeInvalidOrder,
		},
		{
			name:        "both sizings",
			order:       Order{Side: PurchaseTypeBuy, OrderType: OrderTypeMarket, Fraction: optional.Some(1.0), Quantity: optional.Some[int64](100)},
			shouldError: true,
			code:        errors.ErrCodeInvalidOrder,
		},
		{
			name:        "no sizing",
			order:       Order{Side: PurchaseTypeBuy, OrderType: OrderTypeMarket},
			shouldError: true,
			code:        errors.ErrCodeInvalidOrder,
		},
		{name: "zero quantity", order: BuyQuantity(0), shouldError: true, code: errors.ErrCodeInvalidQuantity},
		{name: "zero fraction", order: SellFraction(0), shouldError: true, code: errors.ErrCodeInvalidFraction},
		{name: "fraction above one", order: BuyFraction(1.5), shouldError: true, code: errors.ErrCodeInvalidFraction},
		{name: "limit without price", order: BuyFraction(1).WithLimit(0), shouldError: true, code: errors.ErrCodeInvalidPrice},
		{
			name:        "market with limit price",
			order:       Order{Side: PurchaseTypeSell, OrderType: OrderTypeMarket, Fraction: optional.Some(1.0), LimitPrice: optional.Some(10.0)},
			shouldError: true,
			code:        errors.ErrCodeInvalidOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.shouldError {
				assert.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderWithHelpersReturnCopies(t *testing.T) {
	base := BuyFraction(1.0)
	limited := base.WithLimit(9.8).WithReason(OrderReasonStrategy, "golden cross")

	assert.Equal(t, OrderTypeMarket, base.OrderType)
	assert.True(t, base.LimitPrice.IsNone())
	assert.Empty(t, base.Reason.Reason)

	assert.Equal(t, OrderTypeLimit, limited.OrderType)
	assert.Equal(t, 9.8, limited.LimitPrice.Unwrap())
	assert.Equal(t, "golden cross", limited.Reason.Message)
}

func TestOrderString(t *testing.T) {
	assert.Equal(t, "Order(BUY, MARKET, fraction=1)", BuyFraction(1.0).String())
	assert.Equal(t, "Order(SELL, LIMIT, qty=200, limit=11.5)", SellQuantity(200).WithLimit(11.5).String())
}
