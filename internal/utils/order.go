package utils

import (
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// FloorToLot rounds quantity down to a multiple of lotSize. Negative quantities become 0.
func FloorToLot(quantity int64, lotSize int64) int64 {
	if quantity <= 0 {
		return 0
	}

	if lotSize <= 1 {
		return quantity
	}

	return quantity / lotSize * lotSize
}

// CalculateMaxQuantity returns the largest lot-aligned quantity whose cost,
// commission included, fits in balance.
//
// Two estimates are taken: one where the proportional fee applies and one where
// the floor binds. The smaller one is rounded down to the lot size and then
// stepped down a lot at a time until the real cost fits.
func CalculateMaxQuantity(balance decimal.Decimal, price float64, commissionFee commission_fee.CommissionFee, lotSize int64) int64 {
	if price <= 0 || !balance.IsPositive() {
		return 0
	}

	p := decimal.NewFromFloat(price)

	proportional := balance.Div(p.Mul(decimal.NewFromInt(1).Add(commissionFee.Rate()))).Floor().IntPart()
	floored := balance.Sub(commissionFee.Minimum()).Div(p).Floor().IntPart()

	quantity := FloorToLot(min(proportional, floored), lotSize)

	step := max(lotSize, 1)
	for quantity > 0 && totalCost(p, quantity, commissionFee).GreaterThan(balance) {
		quantity -= step
	}

	return max(quantity, 0)
}

// CalculateOrderQuantityByPercentage sizes a buy that spends percentage of balance,
// using the proportional fee only, rounded down to the lot size.
func CalculateOrderQuantityByPercentage(balance decimal.Decimal, price float64, commissionFee commission_fee.CommissionFee, percentage float64, lotSize int64) int64 {
	if price <= 0 || percentage <= 0 || !balance.IsPositive() {
		return 0
	}

	budget := balance.Mul(decimal.NewFromFloat(percentage))
	unitCost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(commissionFee.Rate()))

	return FloorToLot(budget.Div(unitCost).Floor().IntPart(), lotSize)
}

// CalculateSellQuantityByPercentage returns floor(sellable * percentage) rounded down to the lot size.
func CalculateSellQuantityByPercentage(sellable int64, percentage float64, lotSize int64) int64 {
	if sellable <= 0 || percentage <= 0 {
		return 0
	}

	raw := decimal.NewFromInt(sellable).Mul(decimal.NewFromFloat(percentage)).Floor().IntPart()

	return FloorToLot(raw, lotSize)
}

func totalCost(price decimal.Decimal, quantity int64, commissionFee commission_fee.CommissionFee) decimal.Decimal {
	amount := price.Mul(decimal.NewFromInt(quantity))

	return amount.Add(commissionFee.Calculate(amount))
}
