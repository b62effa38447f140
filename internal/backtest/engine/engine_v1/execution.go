package engine

import (
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/internal/utils"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
)

const DefaultFullPositionThreshold = 0.99

// ExecutionModel turns an Order and an execution price into a ledger operation.
type ExecutionModel struct {
	account *Account
	// fractions at or above this are treated as "everything"
	fullPositionThreshold float64
}

func NewExecutionModel(account *Account, fullPositionThreshold float64) *ExecutionModel {
	if fullPositionThreshold <= 0 || fullPositionThreshold > 1 {
		fullPositionThreshold = DefaultFullPositionThreshold
	}

	return &ExecutionModel{
		account:               account,
		fullPositionThreshold: fullPositionThreshold,
	}
}

// Admissible reports whether a limit order may fill at price. Market orders always may.
func (e *ExecutionModel) Admissible(order types.Order, price float64) bool {
	if order.OrderType != types.OrderTypeLimit || order.LimitPrice.IsNone() {
		return true
	}

	limit := order.LimitPrice.Unwrap()

	switch order.Side {
	case types.PurchaseTypeBuy:
		return price <= limit
	case types.PurchaseTypeSell:
		return price >= limit
	default:
		return false
	}
}

// ResolveQuantity sizes order at price against the current account.
// A result of 0 or less means the order does not trade.
func (e *ExecutionModel) ResolveQuantity(symbol string, order types.Order, price float64) int64 {
	if order.Quantity.IsSome() {
		return order.Quantity.Unwrap()
	}

	if order.Fraction.IsNone() {
		return 0
	}

	fraction := order.Fraction.Unwrap()
	lotSize := e.account.LotSize()

	switch order.Side {
	case types.PurchaseTypeBuy:
		if fraction >= e.fullPositionThreshold {
			return e.account.MaxBuyableQuantity(price)
		}

		return utils.CalculateOrderQuantityByPercentage(e.account.Cash(), price, e.account.CommissionFee(), fraction, lotSize)
	case types.PurchaseTypeSell:
		sellable := e.account.Sellable(symbol)
		if fraction >= e.fullPositionThreshold {
			// full exit, no lot rounding
			return sellable
		}

		return utils.CalculateSellQuantityByPercentage(sellable, fraction, lotSize)
	default:
		return 0
	}
}

// Execute fills order for symbol at price. It returns None with a nil error when the
// order sizes to nothing. An unmet limit or a rejected ledger operation comes back
// as an error; none of them change the account.
func (e *ExecutionModel) Execute(symbol string, order types.Order, price float64) (optional.Option[types.Fill], error) {
	if err := order.Validate(); err != nil {
		return optional.None[types.Fill](), err
	}

	if !e.Admissible(order, price) {
		return optional.None[types.Fill](), errors.Newf(errors.ErrCodeLimitNotReached,
			"%s limit %v not reached at %v", order.Side, order.LimitPrice.Unwrap(), price)
	}

	quantity := e.ResolveQuantity(symbol, order, price)
	if quantity <= 0 {
		return optional.None[types.Fill](), nil
	}

	var (
		fill types.Fill
		err  error
	)

	switch order.Side {
	case types.PurchaseTypeBuy:
		fill, err = e.account.Buy(symbol, price, quantity)
	case types.PurchaseTypeSell:
		fill, err = e.account.Sell(symbol, price, quantity)
	}

	if err != nil {
		return optional.None[types.Fill](), err
	}

	return optional.Some(fill), nil
}
