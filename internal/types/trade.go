package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is a completed trade. It only exists as the result of a successful
// buy or sell on the account.
type Fill struct {
	ID       string          `csv:"id" json:"id"`
	Date     time.Time       `csv:"date" json:"date"`
	Symbol   string          `csv:"symbol" json:"symbol"`
	Side     PurchaseType    `csv:"side" json:"side"`
	Price    decimal.Decimal `csv:"price" json:"price"`
	Quantity int64           `csv:"quantity" json:"quantity"`
	// Amount is price * quantity before fees.
	Amount     decimal.Decimal `csv:"amount" json:"amount"`
	Commission decimal.Decimal `csv:"commission" json:"commission"`
	// StampDuty is always zero for buys.
	StampDuty decimal.Decimal `csv:"stamp_duty" json:"stamp_duty"`
	// CashDelta is the signed change to cash: -(amount + commission) for a buy,
	// amount - commission - stamp duty for a sell.
	CashDelta decimal.Decimal `csv:"cash_delta" json:"cash_delta"`
}

// TotalFees returns commission plus stamp duty.
func (f Fill) TotalFees() decimal.Decimal {
	return f.Commission.Add(f.StampDuty)
}

// Position is the holding of one symbol. Sellable never exceeds Total;
// shares bought today stay locked until the next settlement.
type Position struct {
	Symbol   string `csv:"symbol" json:"symbol"`
	Total    int64  `csv:"total" json:"total"`
	Sellable int64  `csv:"sellable" json:"sellable"`
}

// Locked returns the shares that are held but not yet settled.
func (p Position) Locked() int64 {
	return p.Total - p.Sellable
}
