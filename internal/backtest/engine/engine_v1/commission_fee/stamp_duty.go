package commission_fee

import "github.com/shopspring/decimal"

// StampDuty is the sell-side transaction tax. It has no floor.
type StampDuty struct {
	rate decimal.Decimal
}

func NewStampDuty(rate float64) StampDuty {
	return StampDuty{rate: decimal.NewFromFloat(rate)}
}

// Calculate returns the tax on a sale of the given amount.
func (s StampDuty) Calculate(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.rate)
}

func (s StampDuty) Rate() decimal.Decimal {
	return s.rate
}
