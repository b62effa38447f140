package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/metrics"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	strategy      engine.Strategy
	selector      engine.Selector
	dataPath      string
	resultsFolder string
	log           *logger.Logger
	state         *BacktestState
	datasource    datasource.DataSource
	result        types.BacktestResult
	stats         optional.Option[types.TradeStats]
}

func NewBacktestEngineV1() engine.Engine {
	return NewBacktestEngineV1WithLogger(nil)
}

// NewBacktestEngineV1WithLogger uses log instead of creating a stdout logger on Initialize.
func NewBacktestEngineV1WithLogger(log *logger.Logger) engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		strategy:      nil,
		selector:      nil,
		dataPath:      "",
		resultsFolder: "",
		log:           log,
		state:         nil,
		datasource:    nil,
		result:        types.BacktestResult{},
		stats:         optional.None[types.TradeStats](),
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	b.config = EmptyConfig()

	err := yaml.Unmarshal([]byte(config), &b.config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	if b.log == nil {
		b.log, err = logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	if b.state == nil {
		b.state, err = NewBacktestState(b.log)
		if err != nil {
			return err
		}
	}

	if err := b.state.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to initialize state", err)
	}

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(datasource datasource.DataSource) error {
	b.datasource = datasource

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	if path == "" {
		b.dataPath = ""

		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to get absolute path of %s", path)
	}

	b.dataPath = absPath

	return nil
}

// SetStrategy implements engine.Engine.
func (b *BacktestEngineV1) SetStrategy(strategy engine.Strategy) error {
	b.strategy = strategy

	return nil
}

// SetSelector implements engine.Engine.
func (b *BacktestEngineV1) SetSelector(selector engine.Selector) error {
	b.selector = selector

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// Result implements engine.Engine.
func (b *BacktestEngineV1) Result() types.BacktestResult {
	return b.result
}

// Stats implements engine.Engine.
func (b *BacktestEngineV1) Stats() optional.Option[types.TradeStats] {
	return b.stats
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return err
	}

	if b.dataPath != "" {
		if err := b.datasource.Initialize(b.dataPath); err != nil {
			return err
		}
	}

	runID := uuid.New().String()
	b.result = types.BacktestResult{}
	b.stats = optional.None[types.TradeStats]()

	var (
		result types.BacktestResult
		start  time.Time
		end    time.Time
	)

	switch b.config.Mode {
	case engine.RunModeSingle:
		result, start, end, err = b.runSingle(ctx, runID, callbacks)
	default:
		result, start, end, err = b.runRotation(ctx, runID, callbacks)
	}

	b.result = result

	if err != nil {
		b.log.Error("Backtest stopped",
			zap.String("run_id", runID),
			zap.String("mode", string(b.config.Mode)),
			zap.Error(err),
		)

		return err
	}

	stats := metrics.Calculate(result)
	stats.ID = runID
	stats.Timestamp = time.Now()
	stats.Mode = string(b.config.Mode)
	stats.StrategyName = b.strategyName()
	stats.DataPath = b.dataPath
	stats.StartDate = start
	stats.EndDate = end

	if b.config.Mode == engine.RunModeSingle {
		stats.Symbol = b.config.Symbol
	}

	if b.resultsFolder != "" {
		folder := getResultFolder(b.resultsFolder, b.config.Mode, stats.StrategyName,
			optional.Some(start), optional.Some(end), runID)

		if err := b.writeResults(folder, result, &stats); err != nil {
			return err
		}
	}

	b.stats = optional.Some(stats)

	b.log.Info("Backtest finished",
		zap.String("run_id", runID),
		zap.String("mode", stats.Mode),
		zap.Int("trades", len(result.Trades)),
		zap.Int("days", len(result.Curve)),
		zap.Float64("total_return_pct", stats.Returns.TotalReturnPct),
		zap.Float64("max_drawdown_pct", stats.Returns.MaxDrawdownPct),
	)

	return nil
}

func (b *BacktestEngineV1) runSingle(ctx context.Context, runID string, callbacks engine.LifecycleCallbacks) (types.BacktestResult, time.Time, time.Time, error) {
	bars, err := datasource.Collect(b.datasource, b.config.Symbol, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return types.BacktestResult{}, time.Time{}, time.Time{}, err
	}

	start := bars[0].Date()
	end := bars[len(bars)-1].Date()

	if err := notifyStart(callbacks, runID, engine.RunModeSingle, len(bars)); err != nil {
		return types.BacktestResult{}, start, end, err
	}

	single := NewSingleSymbolEngine(b.config.Symbol, b.config.AccountConfig(), b.config.FullPositionThreshold, b.strategy, b.log)
	result, err := single.Run(ctx, bars, callbacks)

	return result, start, end, err
}

func (b *BacktestEngineV1) runRotation(ctx context.Context, runID string, callbacks engine.LifecycleCallbacks) (types.BacktestResult, time.Time, time.Time, error) {
	series := datasource.NewSeriesCache(b.datasource)

	start, end, err := b.period(series)
	if err != nil {
		return types.BacktestResult{}, start, end, err
	}

	if err := notifyStart(callbacks, runID, engine.RunModeRotation, len(types.CalendarDays(start, end))); err != nil {
		return types.BacktestResult{}, start, end, err
	}

	runner := NewPortfolioRunner(b.config.AccountConfig(), series, b.selector, b.log)
	result, err := runner.Run(ctx, start, end, callbacks)

	return result, start, end, err
}

// period resolves the rotation date range. Unset bounds come from the earliest
// and latest bar of any symbol.
func (b *BacktestEngineV1) period(series *datasource.SeriesCache) (time.Time, time.Time, error) {
	if b.config.StartTime.IsSome() && b.config.EndTime.IsSome() {
		return types.NormalizeDate(b.config.StartTime.Unwrap()), types.NormalizeDate(b.config.EndTime.Unwrap()), nil
	}

	symbols, err := series.Symbols()
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "cannot list symbols", err)
	}

	var first, last time.Time

	for _, symbol := range symbols {
		bars, err := series.Series(symbol)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		if len(bars) == 0 {
			continue
		}

		if first.IsZero() || bars[0].Time.Before(first) {
			first = bars[0].Time
		}

		if last.IsZero() || bars[len(bars)-1].Time.After(last) {
			last = bars[len(bars)-1].Time
		}
	}

	if first.IsZero() {
		return time.Time{}, time.Time{}, errors.New(errors.ErrCodeNoData, "price source has no bars")
	}

	if b.config.StartTime.IsSome() {
		first = b.config.StartTime.Unwrap()
	}

	if b.config.EndTime.IsSome() {
		last = b.config.EndTime.Unwrap()
	}

	return types.NormalizeDate(first), types.NormalizeDate(last), nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) writeResults(folder string, result types.BacktestResult, stats *types.TradeStats) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	if err := b.state.Cleanup(); err != nil {
		return err
	}

	if err := b.state.Record(result); err != nil {
		return err
	}

	if err := b.state.Write(folder); err != nil {
		return err
	}

	stats.TradesFilePath = filepath.Join(folder, TradesParquetFile)
	stats.CurveFilePath = filepath.Join(folder, CurveParquetFile)

	if err := types.WriteTradeStats(filepath.Join(folder, StatsFile), []types.TradeStats{*stats}); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	return nil
}

func (b *BacktestEngineV1) strategyName() string {
	var decider any = b.selector
	if b.config.Mode == engine.RunModeSingle {
		decider = b.strategy
	}

	if named, ok := decider.(engine.Named); ok && named.Name() != "" {
		return named.Name()
	}

	if b.config.Mode == engine.RunModeSingle {
		return "strategy"
	}

	return "selector"
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil || b.state == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	switch b.config.Mode {
	case engine.RunModeSingle:
		if b.strategy == nil {
			b.log.Error("No strategy set")

			return errors.New(errors.ErrCodeBacktestNoStrategy, "single mode needs a strategy")
		}
	default:
		if b.selector == nil {
			b.log.Error("No selector set")

			return errors.New(errors.ErrCodeBacktestNoSelector, "rotation mode needs a selector")
		}
	}

	return nil
}
