package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the end-of-day valuation of the account.
// Exactly one is produced per simulated date, in date order.
type Snapshot struct {
	Date time.Time       `csv:"date" json:"date"`
	Cash decimal.Decimal `csv:"cash" json:"cash"`
	// PositionValue is quantity * that day's close.
	PositionValue decimal.Decimal `csv:"position_value" json:"position_value"`
	TotalAssets   decimal.Decimal `csv:"total_assets" json:"total_assets"`
	// Symbol is the held instrument, empty when flat.
	Symbol   string `csv:"symbol" json:"symbol"`
	Quantity int64  `csv:"quantity" json:"quantity"`
	// CarriedForward marks a non-trading day copied from the previous snapshot.
	CarriedForward bool `csv:"carried_forward" json:"carried_forward"`
}

// BacktestResult is everything a run produces.
type BacktestResult struct {
	Trades []Fill
	Curve  []Snapshot
}

// IsEmpty reports whether the run produced no curve at all.
func (r BacktestResult) IsEmpty() bool {
	return len(r.Curve) == 0
}

// FinalAssets returns the last total assets on the curve, or zero.
func (r BacktestResult) FinalAssets() decimal.Decimal {
	if len(r.Curve) == 0 {
		return decimal.Zero
	}

	return r.Curve[len(r.Curve)-1].TotalAssets
}
