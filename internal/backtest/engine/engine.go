package engine

import (
	"context"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
)

// Strategy is the decision function of the single-symbol engine. It sees one
// bar per trading day, after the close, and may return an order for the next open.
type Strategy interface {
	OnBar(bar types.MarketData) (optional.Option[types.Order], error)
}

// Selector is the decision function of the rotation runner. It is called once per
// calendar date and must only use information dated strictly before date.
type Selector interface {
	Select(date time.Time) (optional.Option[string], error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(bar types.MarketData) (optional.Option[types.Order], error)

func (f StrategyFunc) OnBar(bar types.MarketData) (optional.Option[types.Order], error) {
	return f(bar)
}

// SelectorFunc adapts a plain function to Selector.
type SelectorFunc func(date time.Time) (optional.Option[string], error)

func (f SelectorFunc) Select(date time.Time) (optional.Option[string], error) {
	return f(date)
}

// Named is implemented by strategies and selectors that want their name in the run stats.
type Named interface {
	Name() string
}

type RunMode string

const (
	RunModeSingle   RunMode = "single"
	RunModeRotation RunMode = "rotation"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called once the date range is known.
type OnBacktestStartCallback func(runID string, mode RunMode, totalDays int) error

// OnBacktestEndCallback is called when the backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnFillCallback is called for every fill, in order.
type OnFillCallback func(fill types.Fill) error

// OnProcessDataCallback is called after each simulated day. Days are never interrupted.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnFill          *OnFillCallback
	OnProcessData   *OnProcessDataCallback
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataSource sets the price series source.
	SetDataSource(dataSource datasource.DataSource) error
	// SetDataPath sets the path the data source is initialized with at the start of Run.
	// Leave empty if the data source is already initialized.
	SetDataPath(path string) error
	// SetStrategy sets the decision function used in single mode.
	SetStrategy(strategy Strategy) error
	// SetSelector sets the selector used in rotation mode.
	SetSelector(selector Selector) error
	// SetResultsFolder sets the output directory. Results are written to <folder>/<run id>.
	// Leave empty to keep results in memory only.
	SetResultsFolder(folder string) error
	// Run runs the configured mode over the configured date range.
	// The context is checked between days.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// Result returns the trade log and curve of the last run.
	Result() types.BacktestResult
	// Stats returns the metrics of the last run.
	Stats() optional.Option[types.TradeStats]
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
