package commission_fee

import "github.com/shopspring/decimal"

// AShareCommissionFee charges amount * rate with a per-trade floor.
type AShareCommissionFee struct {
	rate    decimal.Decimal
	minimum decimal.Decimal
}

func NewAShareCommissionFee(rate float64, minimum float64) CommissionFee {
	return &AShareCommissionFee{
		rate:    decimal.NewFromFloat(rate),
		minimum: decimal.NewFromFloat(minimum),
	}
}

// NewDefaultAShareCommissionFee uses 0.03% with a 5 yuan floor.
func NewDefaultAShareCommissionFee() CommissionFee {
	return NewAShareCommissionFee(DefaultCommissionRate, DefaultMinCommission)
}

func (c *AShareCommissionFee) Calculate(amount decimal.Decimal) decimal.Decimal {
	return decimal.Max(amount.Mul(c.rate), c.minimum)
}

func (c *AShareCommissionFee) Rate() decimal.Decimal {
	return c.rate
}

func (c *AShareCommissionFee) Minimum() decimal.Decimal {
	return c.minimum
}
