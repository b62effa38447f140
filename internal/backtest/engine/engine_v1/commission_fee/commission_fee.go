package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate returns the commission charged on a trade of the given amount (price * quantity).
	Calculate(amount decimal.Decimal) decimal.Decimal
	// Rate is the proportional part of the fee, used when sizing orders.
	Rate() decimal.Decimal
	// Minimum is the per-trade floor.
	Minimum() decimal.Decimal
}

type Broker string

const (
	BrokerAShare Broker = "a_share"
	BrokerZero   Broker = "zero_commission"
)

const (
	DefaultCommissionRate = 0.0003
	DefaultMinCommission  = 5.0
	DefaultStampDutyRate  = 0.0005
)

var AllBrokers = []any{
	BrokerAShare,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for broker. rate and minimum
// only apply to brokers that charge a proportional fee.
func GetCommissionFeeHandler(broker Broker, rate float64, minimum float64) CommissionFee {
	switch broker {
	case BrokerAShare:
		return NewAShareCommissionFee(rate, minimum)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
