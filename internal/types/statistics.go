package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all fills, buys and sells.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of buy -> sell round trips.
	NumberOfRoundTrips int `yaml:"number_of_round_trips"`
	// Round trips whose sell proceeds exceeded the buy cost.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Round trips that lost money or broke even.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate in percent.
	WinRatePct float64 `yaml:"win_rate_pct"`
}

type TradeReturns struct {
	InitialAssets float64 `yaml:"initial_assets"`
	FinalAssets   float64 `yaml:"final_assets"`
	// Total return in percent.
	TotalReturnPct float64 `yaml:"total_return_pct"`
	// Compound annual growth rate in percent, 365-day basis.
	CAGRPct float64 `yaml:"cagr_pct"`
	// Maximum drawdown in percent (zero or negative).
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	// Annualized Sharpe ratio over daily returns.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
}

type TradeFees struct {
	TotalCommission float64 `yaml:"total_commission"`
	TotalStampDuty  float64 `yaml:"total_stamp_duty"`
	TotalFees       float64 `yaml:"total_fees"`
}

type TradeStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Mode is "single" or "rotation".
	Mode string `yaml:"mode" json:"mode"`
	// Symbol traded in single mode; empty for rotation.
	Symbol    string    `yaml:"symbol" json:"symbol"`
	StartDate time.Time `yaml:"start_date" json:"start_date"`
	EndDate   time.Time `yaml:"end_date" json:"end_date"`
	// Number of snapshots on the curve.
	TradingDays int          `yaml:"days" json:"days"`
	TradeResult TradeResult  `yaml:"trade_result" json:"trade_result"`
	Returns     TradeReturns `yaml:"returns" json:"returns"`
	Fees        TradeFees    `yaml:"fees" json:"fees"`
	// StrategyName is the decision function or selector that drove the run.
	StrategyName string `yaml:"strategy_name" json:"strategy_name"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// CurveFilePath is the path to the curve parquet file.
	CurveFilePath string `yaml:"curve_file_path" json:"curve_file_path"`
	// DataPath is the price data used for this backtest.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteTradeStats(path string, stats []TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}

// ReadTradeStats reads a stats file written by WriteTradeStats.
func ReadTradeStats(path string) ([]TradeStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade stats file: %w", err)
	}

	var stats []TradeStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade stats: %w", err)
	}

	return stats, nil
}
