package engine

import (
	"context"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// PortfolioRunner rotates the whole account between symbols, holding at most one
// at a time. It walks calendar days, not trading days.
//
// On a day the held symbol does not trade, the previous snapshot is carried
// forward and nothing else happens. Otherwise the account settles, the selector
// picks a target, the holding is sold at the open if it differs, and the target is
// bought at the open with all available cash.
type PortfolioRunner struct {
	account  *Account
	series   *datasource.SeriesCache
	selector engine.Selector
	log      *logger.Logger

	holding optional.Option[string]
	trades  []types.Fill
	curve   []types.Snapshot
}

func NewPortfolioRunner(config AccountConfig, series *datasource.SeriesCache, selector engine.Selector, log *logger.Logger) *PortfolioRunner {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PortfolioRunner{
		account:  NewAccount(config),
		series:   series,
		selector: selector,
		log:      log,
		holding:  optional.None[string](),
	}
}

func (r *PortfolioRunner) Account() *Account {
	return r.account
}

// Holding returns the symbol currently held.
func (r *PortfolioRunner) Holding() optional.Option[string] {
	return r.holding
}

// Result returns what has been produced so far.
func (r *PortfolioRunner) Result() types.BacktestResult {
	return types.BacktestResult{Trades: r.trades, Curve: r.curve}
}

// Run simulates every calendar day from start to end inclusive. It only fails
// early when the price source is unusable or has no bar in the range; ctx is
// checked between days.
func (r *PortfolioRunner) Run(ctx context.Context, start time.Time, end time.Time, callbacks engine.LifecycleCallbacks) (types.BacktestResult, error) {
	days := types.CalendarDays(start, end)
	if len(days) == 0 {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeInvalidPeriod,
			"end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	symbols, err := r.series.Symbols()
	if err != nil {
		return types.BacktestResult{}, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "cannot list symbols", err)
	}

	if len(symbols) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeNoData, "price source has no symbols")
	}

	hasBars, err := r.hasBarsIn(symbols, days[0], days[len(days)-1])
	if err != nil {
		return types.BacktestResult{}, err
	}

	if !hasBars {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeNoData, "no bars between %s and %s",
			days[0].Format(time.DateOnly), days[len(days)-1].Format(time.DateOnly))
	}

	r.log.Info("Rotation started",
		zap.Time("start", days[0]),
		zap.Time("end", days[len(days)-1]),
		zap.Int("days", len(days)),
		zap.Int("symbols", len(symbols)),
	)

	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return r.Result(), err
		}

		if err := r.Step(day, callbacks); err != nil {
			return r.Result(), err
		}

		if err := notifyProgress(callbacks, i+1, len(days)); err != nil {
			return r.Result(), err
		}
	}

	return r.Result(), nil
}

// hasBarsIn reports whether any symbol has a bar dated within [start, end].
func (r *PortfolioRunner) hasBarsIn(symbols []string, start time.Time, end time.Time) (bool, error) {
	for _, symbol := range symbols {
		bars, err := r.series.Series(symbol)
		if err != nil {
			return false, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "cannot read %s", symbol)
		}

		for _, bar := range bars {
			date := bar.Date()
			if !date.Before(start) && !date.After(end) {
				return true, nil
			}
		}
	}

	return false, nil
}

// Step simulates one calendar day and appends exactly one snapshot, or none if
// the day is a market holiday for the held symbol and there is nothing to carry yet.
func (r *PortfolioRunner) Step(date time.Time, callbacks engine.LifecycleCallbacks) error {
	date = types.NormalizeDate(date)

	if r.holding.IsSome() {
		held := r.holding.Unwrap()
		if r.bar(held, date).IsNone() {
			r.carryForward(date)

			return nil
		}
	}

	r.account.Settle()

	target, err := r.selector.Select(date)
	if err != nil {
		r.log.Warn("Selector failed, keeping current holding",
			zap.Time("date", date),
			zap.Error(err),
		)

		target = r.holding
	}

	if err := r.rotate(date, target, callbacks); err != nil {
		return err
	}

	r.value(date)

	return nil
}

// rotate moves the account from the current holding to target at today's open.
func (r *PortfolioRunner) rotate(date time.Time, target optional.Option[string], callbacks engine.LifecycleCallbacks) error {
	if r.holding.IsSome() && !sameSymbol(r.holding, target) {
		sold, err := r.sellHolding(date, callbacks)
		if err != nil {
			return err
		}

		if !sold {
			target = r.holding
		}
	}

	if target.IsNone() || r.holding.IsSome() {
		return nil
	}

	symbol := target.Unwrap()

	bar := r.bar(symbol, date)
	if bar.IsNone() {
		r.log.Info("Target has no bar today, buy skipped",
			zap.String("symbol", symbol),
			zap.Time("date", date),
		)

		return nil
	}

	open := bar.Unwrap().Open

	quantity := r.account.MaxBuyableQuantity(open)
	if quantity <= 0 {
		r.log.Info("Not enough cash for one lot, buy skipped",
			zap.String("symbol", symbol),
			zap.Time("date", date),
			zap.Float64("open", open),
			zap.String("cash", r.account.Cash().StringFixed(2)),
		)

		return nil
	}

	fill, err := r.account.Buy(symbol, open, quantity)
	if err != nil {
		r.log.Warn("Buy rejected",
			zap.String("symbol", symbol),
			zap.Time("date", date),
			zap.Error(err),
		)

		return nil
	}

	r.holding = optional.Some(symbol)

	return r.record(fill, date, callbacks)
}

// sellHolding sells every sellable share of the holding at today's open.
// It reports whether the holding is gone.
func (r *PortfolioRunner) sellHolding(date time.Time, callbacks engine.LifecycleCallbacks) (bool, error) {
	held := r.holding.Unwrap()

	sellable := r.account.Sellable(held)
	if sellable == 0 {
		r.log.Info("Rotation blocked by T+1, holding",
			zap.String("symbol", held),
			zap.Time("date", date),
		)

		return false, nil
	}

	bar := r.bar(held, date)
	if bar.IsNone() {
		r.log.Info("Holding has no bar today, cannot sell",
			zap.String("symbol", held),
			zap.Time("date", date),
		)

		return false, nil
	}

	fill, err := r.account.Sell(held, bar.Unwrap().Open, sellable)
	if err != nil {
		r.log.Warn("Sell rejected",
			zap.String("symbol", held),
			zap.Time("date", date),
			zap.Error(err),
		)

		return false, nil
	}

	if err := r.record(fill, date, callbacks); err != nil {
		return false, err
	}

	if r.account.Position(held).IsSome() {
		// locked shares are left over
		return false, nil
	}

	r.holding = optional.None[string]()

	return true, nil
}

func (r *PortfolioRunner) value(date time.Time) {
	if r.holding.IsNone() {
		r.curve = append(r.curve, snapshot(r.account, date, "", 0))

		return
	}

	held := r.holding.Unwrap()

	var close float64
	if bar := r.bar(held, date); bar.IsSome() {
		close = bar.Unwrap().Close
	} else {
		r.log.Warn("Holding has no close today, valued at 0",
			zap.String("symbol", held),
			zap.Time("date", date),
		)
	}

	r.curve = append(r.curve, snapshot(r.account, date, held, close))
}

func (r *PortfolioRunner) carryForward(date time.Time) {
	if len(r.curve) == 0 {
		return
	}

	last := r.curve[len(r.curve)-1]
	last.Date = date
	last.CarriedForward = true

	r.curve = append(r.curve, last)
}

func (r *PortfolioRunner) record(fill types.Fill, date time.Time, callbacks engine.LifecycleCallbacks) error {
	fill.Date = date
	r.trades = append(r.trades, fill)

	r.log.Info("Rotation fill",
		zap.String("symbol", fill.Symbol),
		zap.Time("date", date),
		zap.String("side", string(fill.Side)),
		zap.Int64("quantity", fill.Quantity),
		zap.String("price", fill.Price.String()),
	)

	return notifyFill(callbacks, fill)
}

// bar looks up symbol on date. A broken source reads as "no bar".
func (r *PortfolioRunner) bar(symbol string, date time.Time) optional.Option[types.MarketData] {
	bar, err := r.series.Bar(symbol, date)
	if err != nil {
		r.log.Warn("Failed to read bar",
			zap.String("symbol", symbol),
			zap.Time("date", date),
			zap.Error(err),
		)

		return optional.None[types.MarketData]()
	}

	return bar
}

func sameSymbol(a optional.Option[string], b optional.Option[string]) bool {
	if a.IsNone() || b.IsNone() {
		return a.IsNone() && b.IsNone()
	}

	return a.Unwrap() == b.Unwrap()
}
