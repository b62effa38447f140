package engine

import (
	"sort"

	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/internal/utils"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

const DefaultLotSize int64 = 100

// AccountConfig is the fee schedule and endowment of one simulation run.
type AccountConfig struct {
	InitialCash decimal.Decimal
	Commission  commission_fee.CommissionFee
	StampDuty   commission_fee.StampDuty
	LotSize     int64
}

// DefaultAccountConfig returns the A-share schedule: 0.03% commission with a 5 yuan
// floor, 0.05% stamp duty on sells and 100-share lots.
func DefaultAccountConfig(initialCash float64) AccountConfig {
	return AccountConfig{
		InitialCash: decimal.NewFromFloat(initialCash),
		Commission:  commission_fee.NewDefaultAShareCommissionFee(),
		StampDuty:   commission_fee.NewStampDuty(commission_fee.DefaultStampDutyRate),
		LotSize:     DefaultLotSize,
	}
}

// Account is the cash and share ledger of a single run. It knows nothing about
// dates: fills come back undated and the caller stamps them.
//
// Cash never goes negative and a position's sellable count never exceeds its
// total. Shares bought stay locked until the next Settle.
type Account struct {
	cash       decimal.Decimal
	positions  map[string]types.Position
	commission commission_fee.CommissionFee
	stampDuty  commission_fee.StampDuty
	lotSize    int64
}

func NewAccount(config AccountConfig) *Account {
	commission := config.Commission
	if commission == nil {
		commission = commission_fee.NewZeroCommissionFee()
	}

	lotSize := config.LotSize
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}

	return &Account{
		cash:       config.InitialCash,
		positions:  make(map[string]types.Position),
		commission: commission,
		stampDuty:  config.StampDuty,
		lotSize:    lotSize,
	}
}

// Buy debits price*quantity plus commission and adds quantity to the locked
// part of the position.
func (a *Account) Buy(symbol string, price float64, quantity int64) (types.Fill, error) {
	if quantity <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidQuantity, "buy quantity must be positive, got %d", quantity)
	}

	if price <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidPrice, "buy price must be positive, got %v", price)
	}

	p := decimal.NewFromFloat(price)
	amount := p.Mul(decimal.NewFromInt(quantity))
	commission := a.Commission(amount)
	cost := amount.Add(commission)

	if cost.GreaterThan(a.cash) {
		return types.Fill{}, errors.Newf(errors.ErrCodeInsufficientCash,
			"insufficient cash to buy %d %s: need %s, have %s", quantity, symbol, cost.StringFixed(2), a.cash.StringFixed(2))
	}

	a.cash = a.cash.Sub(cost)

	position := a.positions[symbol]
	position.Symbol = symbol
	position.Total += quantity
	a.positions[symbol] = position

	return types.Fill{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       types.PurchaseTypeBuy,
		Price:      p,
		Quantity:   quantity,
		Amount:     amount,
		Commission: commission,
		StampDuty:  decimal.Zero,
		CashDelta:  cost.Neg(),
	}, nil
}

// Sell credits price*quantity less commission and stamp duty. Only settled
// shares can be sold; the position is removed once it is empty.
func (a *Account) Sell(symbol string, price float64, quantity int64) (types.Fill, error) {
	position, ok := a.positions[symbol]
	if !ok {
		return types.Fill{}, errors.Newf(errors.ErrCodeUnknownSymbol, "no position in %s", symbol)
	}

	if quantity <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidQuantity, "sell quantity must be positive, got %d", quantity)
	}

	if quantity > position.Sellable {
		return types.Fill{}, errors.Newf(errors.ErrCodeInsufficientSellable,
			"cannot sell %d %s: only %d of %d shares are sellable", quantity, symbol, position.Sellable, position.Total)
	}

	if price <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidPrice, "sell price must be positive, got %v", price)
	}

	p := decimal.NewFromFloat(price)
	amount := p.Mul(decimal.NewFromInt(quantity))
	commission := a.Commission(amount)
	stampDuty := a.StampDuty(amount)
	net := amount.Sub(commission).Sub(stampDuty)

	a.cash = a.cash.Add(net)

	position.Total -= quantity
	position.Sellable -= quantity

	if position.Total == 0 {
		delete(a.positions, symbol)
	} else {
		a.positions[symbol] = position
	}

	return types.Fill{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       types.PurchaseTypeSell,
		Price:      p,
		Quantity:   quantity,
		Amount:     amount,
		Commission: commission,
		StampDuty:  stampDuty,
		CashDelta:  net,
	}, nil
}

// Commission returns the commission on a trade amount, floor included.
func (a *Account) Commission(amount decimal.Decimal) decimal.Decimal {
	return a.commission.Calculate(amount)
}

// StampDuty returns the sell-side tax on a trade amount.
func (a *Account) StampDuty(amount decimal.Decimal) decimal.Decimal {
	return a.stampDuty.Calculate(amount)
}

// Settle unlocks every held share. Call it once per simulated day before
// that day's orders execute.
func (a *Account) Settle() {
	for symbol, position := range a.positions {
		position.Sellable = position.Total
		a.positions[symbol] = position
	}
}

// PositionValue prices every holding; symbols missing from prices count as 0.
func (a *Account) PositionValue(prices map[string]float64) decimal.Decimal {
	value := decimal.Zero

	for symbol, position := range a.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}

		value = value.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(position.Total)))
	}

	return value
}

// UpdateMarketValue returns cash plus the position value at prices.
// It does not change the account.
func (a *Account) UpdateMarketValue(prices map[string]float64) decimal.Decimal {
	return a.cash.Add(a.PositionValue(prices))
}

// MaxBuyableQuantity is the largest lot-aligned quantity affordable at price with
// all available cash.
func (a *Account) MaxBuyableQuantity(price float64) int64 {
	return utils.CalculateMaxQuantity(a.cash, price, a.commission, a.lotSize)
}

func (a *Account) Cash() decimal.Decimal {
	return a.cash
}

func (a *Account) LotSize() int64 {
	return a.lotSize
}

func (a *Account) CommissionFee() commission_fee.CommissionFee {
	return a.commission
}

// Position returns the holding of symbol, if any.
func (a *Account) Position(symbol string) optional.Option[types.Position] {
	position, ok := a.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(position)
}

// Positions returns all holdings ordered by symbol.
func (a *Account) Positions() []types.Position {
	positions := make([]types.Position, 0, len(a.positions))
	for _, position := range a.positions {
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions
}

// Sellable returns the settled share count of symbol, 0 when not held.
func (a *Account) Sellable(symbol string) int64 {
	return a.positions[symbol].Sellable
}
