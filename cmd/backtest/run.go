package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	engine_v1 "github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1"
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/strategy"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

func rotationAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	config, err := loadConfig(cmd, engine.RunModeRotation)
	if err != nil {
		return err
	}

	ds, err := openData(cmd, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	selector, err := newSelector(ctx, cmd, config, ds, log)
	if err != nil {
		return err
	}

	return runBacktest(ctx, cmd, log, config, ds, func(e engine.Engine) error {
		return e.SetSelector(selector)
	})
}

func singleAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	config, err := loadConfig(cmd, engine.RunModeSingle)
	if err != nil {
		return err
	}

	config.Symbol = cmd.String("symbol")

	ds, err := openData(cmd, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	crossover, err := strategy.NewSMACrossover(strategy.SMACrossoverConfig{
		FastPeriod: cmd.Int("fast"),
		SlowPeriod: cmd.Int("slow"),
	})
	if err != nil {
		return err
	}

	return runBacktest(ctx, cmd, log, config, ds, func(e engine.Engine) error {
		return e.SetStrategy(crossover)
	})
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	log, err := logger.NewLoggerWithFile(level, cmd.String("log-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// loadConfig reads --config, if any, and applies the command line overrides on top.
func loadConfig(cmd *cli.Command, mode engine.RunMode) (engine_v1.BacktestEngineV1Config, error) {
	config := engine_v1.EmptyConfig()

	if path := cmd.String("config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(content, &config); err != nil {
			return config, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	config.Mode = mode

	if cmd.IsSet("capital") {
		config.InitialCapital = cmd.Float("capital")
	}

	if cmd.IsSet("start") {
		config.StartTime = optional.Some(types.NormalizeDate(cmd.Timestamp("start")))
	}

	if cmd.IsSet("end") {
		config.EndTime = optional.Some(types.NormalizeDate(cmd.Timestamp("end")))
	}

	if cmd.IsSet("lookback") && cmd.Int("lookback") >= 0 {
		config.LookbackDays = cmd.Int("lookback")
	}

	return config, nil
}

func openData(cmd *cli.Command, log *logger.Logger) (datasource.DataSource, error) {
	dataPath, err := filepath.Abs(cmd.String("data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data path: %w", err)
	}

	ds, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return nil, err
	}

	if err := ds.Initialize(dataPath); err != nil {
		ds.Close()

		return nil, err
	}

	return ds, nil
}

// newSelector returns the lookup selector of --signals, or the sniper selector.
// With --save-signals the sniper is evaluated over the whole period first and
// its decisions are written out and replayed.
func newSelector(ctx context.Context, cmd *cli.Command, config engine_v1.BacktestEngineV1Config, ds datasource.DataSource, log *logger.Logger) (engine.Selector, error) {
	if path := cmd.String("signals"); path != "" {
		lookup, err := strategy.LoadSignals(path, config.LookbackDays)
		if err != nil {
			return nil, err
		}

		log.Info("Loaded signals", zap.String("path", path), zap.Int("signals", lookup.Len()))

		return lookup, nil
	}

	info := strategy.NewStockInfo(nil, nil)

	if path := cmd.String("stock-info"); path != "" {
		loaded, err := strategy.LoadStockInfo(path)
		if err != nil {
			return nil, err
		}

		info = loaded
	} else {
		log.Warn("No stock info given, market cap and ST filters are disabled")
	}

	sniperConfig := strategy.DefaultSniperConfig()
	sniperConfig.FlowScale = config.FlowScale
	sniperConfig.Workers = cmd.Int("workers")

	if err := sniperConfig.Validate(); err != nil {
		return nil, err
	}

	sniper := strategy.NewSniperSelector(sniperConfig, datasource.NewSeriesCache(ds), info, log)

	out := cmd.String("save-signals")
	if out == "" {
		return sniper, nil
	}

	if config.StartTime.IsNone() || config.EndTime.IsNone() {
		return nil, fmt.Errorf("--save-signals needs --start and --end")
	}

	dates := types.CalendarDays(config.StartTime.Unwrap(), config.EndTime.Unwrap())
	bar := newProgressBar(len(dates), "Selecting")

	lookup, err := strategy.Precompute(ctx, sniper, dates, config.LookbackDays, func(current, total int) {
		_ = bar.Set(current)
	})
	if err != nil {
		return nil, err
	}

	_ = bar.Finish()

	if err := strategy.WriteSignals(out, lookup); err != nil {
		return nil, err
	}

	log.Info("Signals written", zap.String("path", out), zap.Int("signals", lookup.Len()))

	return lookup, nil
}

func runBacktest(ctx context.Context, cmd *cli.Command, log *logger.Logger, config engine_v1.BacktestEngineV1Config,
	ds datasource.DataSource, configure func(e engine.Engine) error) error {
	rawConfig, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	backtester := engine_v1.NewBacktestEngineV1WithLogger(log)

	if err := backtester.Initialize(string(rawConfig)); err != nil {
		return err
	}

	if err := backtester.SetDataSource(ds); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	if err := configure(backtester); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(runID string, mode engine.RunMode, totalDays int) error {
		bar = newProgressBar(totalDays, fmt.Sprintf("Backtesting %s", mode))

		return nil
	})
	onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})
	onFill := engine.OnFillCallback(func(fill types.Fill) error {
		log.Debug("Fill",
			zap.String("date", fill.Date.Format(time.DateOnly)),
			zap.String("symbol", fill.Symbol),
			zap.String("side", string(fill.Side)),
			zap.Int64("quantity", fill.Quantity),
			zap.String("price", fill.Price.String()),
		)

		return nil
	})
	onEnd := engine.OnBacktestEndCallback(func(err error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	started := time.Now()

	err = backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnFill:          &onFill,
		OnProcessData:   &onProcess,
	})
	if err != nil {
		return err
	}

	stats := backtester.Stats()
	if stats.IsNone() {
		return nil
	}

	printStats(stats.Unwrap(), time.Since(started))

	return nil
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func printStats(stats types.TradeStats, elapsed time.Duration) {
	rows := []struct {
		name  string
		value string
	}{
		{"Period", fmt.Sprintf("%s - %s", stats.StartDate.Format(time.DateOnly), stats.EndDate.Format(time.DateOnly))},
		{"Strategy", stats.StrategyName},
		{"Final assets", fmt.Sprintf("%.2f", stats.Returns.FinalAssets)},
		{"Total return %", fmt.Sprintf("%.4f", stats.Returns.TotalReturnPct)},
		{"CAGR %", fmt.Sprintf("%.4f", stats.Returns.CAGRPct)},
		{"Max drawdown %", fmt.Sprintf("%.4f", stats.Returns.MaxDrawdownPct)},
		{"Sharpe", fmt.Sprintf("%.4f", stats.Returns.SharpeRatio)},
		{"Trades", fmt.Sprintf("%d", stats.TradeResult.NumberOfTrades)},
		{"Win rate %", fmt.Sprintf("%.2f", stats.TradeResult.WinRatePct)},
		{"Fees", fmt.Sprintf("%.2f", stats.Fees.TotalFees)},
		{"Trades file", stats.TradesFilePath},
		{"Elapsed", elapsed.Round(time.Millisecond).String()},
	}

	fmt.Println()
	fmt.Println("BACKTEST PERFORMANCE")

	for _, row := range rows {
		fmt.Printf("%-16s: %s\n", row.name, row.value)
	}
}
