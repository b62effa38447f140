package engine

import (
	"context"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// SingleSymbolEngine drives one symbol through a continuous series of daily bars.
// Orders are decided at the close and filled at the next open.
//
// Each day:
//  1. the pending order, if any, is filled at the open and cleared
//  2. the account is valued at the close
//  3. the strategy sees the bar and may queue one order
//  4. the account settles
type SingleSymbolEngine struct {
	symbol    string
	account   *Account
	execution *ExecutionModel
	strategy  engine.Strategy
	log       *logger.Logger

	pending optional.Option[types.Order]
	trades  []types.Fill
	curve   []types.Snapshot
}

func NewSingleSymbolEngine(symbol string, config AccountConfig, fullPositionThreshold float64, strategy engine.Strategy, log *logger.Logger) *SingleSymbolEngine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	account := NewAccount(config)

	return &SingleSymbolEngine{
		symbol:    symbol,
		account:   account,
		execution: NewExecutionModel(account, fullPositionThreshold),
		strategy:  strategy,
		log:       log,
		pending:   optional.None[types.Order](),
	}
}

// PendingOrder returns the order waiting for the next open.
func (e *SingleSymbolEngine) PendingOrder() optional.Option[types.Order] {
	return e.pending
}

func (e *SingleSymbolEngine) Account() *Account {
	return e.account
}

// Result returns what has been produced so far.
func (e *SingleSymbolEngine) Result() types.BacktestResult {
	return types.BacktestResult{Trades: e.trades, Curve: e.curve}
}

// Run processes bars in order. An empty series returns an empty result and ErrCodeNoData.
// ctx is only checked between days.
func (e *SingleSymbolEngine) Run(ctx context.Context, bars []types.MarketData, callbacks engine.LifecycleCallbacks) (types.BacktestResult, error) {
	if len(bars) == 0 {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeNoData, "no bars for %s", e.symbol)
	}

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return e.Result(), err
		}

		if err := e.Step(bar, callbacks); err != nil {
			return e.Result(), err
		}

		if err := notifyProgress(callbacks, i+1, len(bars)); err != nil {
			return e.Result(), err
		}
	}

	return e.Result(), nil
}

// Step runs one trading day. Only callback errors are returned; rejected orders
// and strategy failures are logged and the day goes on.
func (e *SingleSymbolEngine) Step(bar types.MarketData, callbacks engine.LifecycleCallbacks) error {
	date := bar.Date()

	if e.pending.IsSome() {
		order := e.pending.Unwrap()
		e.pending = optional.None[types.Order]()

		fill, err := e.execution.Execute(e.symbol, order, bar.Open)
		if err != nil {
			// rejections are part of the simulation; anything else points at a broken order
			level := zap.InfoLevel
			if !errors.Recoverable(err) {
				level = zap.WarnLevel
			}

			e.log.Log(level, "Pending order dropped",
				zap.String("symbol", e.symbol),
				zap.Time("date", date),
				zap.String("order", order.String()),
				zap.Error(err),
			)
		}

		if fill.IsSome() {
			f := fill.Unwrap()
			f.Date = date
			e.trades = append(e.trades, f)

			e.log.Debug("Order filled",
				zap.String("symbol", e.symbol),
				zap.Time("date", date),
				zap.String("side", string(f.Side)),
				zap.Int64("quantity", f.Quantity),
				zap.String("price", f.Price.String()),
			)

			if err := notifyFill(callbacks, f); err != nil {
				return err
			}
		}
	}

	e.curve = append(e.curve, snapshot(e.account, date, e.symbol, bar.Close))

	order, err := e.strategy.OnBar(bar)
	if err != nil {
		e.log.Warn("Strategy failed, no order today",
			zap.String("symbol", e.symbol),
			zap.Time("date", date),
			zap.Error(err),
		)
	} else if order.IsSome() {
		e.pending = order
	}

	e.account.Settle()

	return nil
}
