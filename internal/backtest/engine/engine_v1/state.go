package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TradesParquetFile = "trades.parquet"
	TradesCSVFile     = "trades.csv"
	CurveParquetFile  = "curve.parquet"
	StatsFile         = "stats.yaml"
)

// BacktestState keeps the trade log and the valuation curve of a run in DuckDB
// so they can be exported in one COPY each.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open database", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and curve tables
func (b *BacktestState) Initialize() error {
	// money is stored as DECIMAL so the export matches the ledger to the cent
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			date DATE,
			symbol TEXT,
			side TEXT,
			price DECIMAL(28, 8),
			quantity BIGINT,
			amount DECIMAL(28, 8),
			commission DECIMAL(28, 8),
			stamp_duty DECIMAL(28, 8),
			cash_delta DECIMAL(28, 8)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS curve (
			date DATE PRIMARY KEY,
			cash DECIMAL(28, 8),
			position_value DECIMAL(28, 8),
			total_assets DECIMAL(28, 8),
			symbol TEXT,
			quantity BIGINT,
			carried_forward BOOLEAN
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create curve table: %w", err)
	}

	return nil
}

// RecordFill appends a fill to the trade log.
func (b *BacktestState) RecordFill(fill types.Fill) error {
	_, err := b.sq.
		Insert("trades").
		Columns("id", "date", "symbol", "side", "price", "quantity", "amount", "commission", "stamp_duty", "cash_delta").
		Values(
			fill.ID, fill.Date, fill.Symbol, string(fill.Side), money(fill.Price), fill.Quantity,
			money(fill.Amount), money(fill.Commission), money(fill.StampDuty), money(fill.CashDelta),
		).
		RunWith(b.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}

	return nil
}

// RecordSnapshot appends a day to the curve. A date can only be recorded once.
func (b *BacktestState) RecordSnapshot(snapshot types.Snapshot) error {
	_, err := b.sq.
		Insert("curve").
		Columns("date", "cash", "position_value", "total_assets", "symbol", "quantity", "carried_forward").
		Values(
			snapshot.Date, money(snapshot.Cash), money(snapshot.PositionValue), money(snapshot.TotalAssets),
			snapshot.Symbol, snapshot.Quantity, snapshot.CarriedForward,
		).
		RunWith(b.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for %s: %w", snapshot.Date.Format(time.DateOnly), err)
	}

	return nil
}

// Record stores a whole result.
func (b *BacktestState) Record(result types.BacktestResult) error {
	for _, fill := range result.Trades {
		if err := b.RecordFill(fill); err != nil {
			return err
		}
	}

	for _, snapshot := range result.Curve {
		if err := b.RecordSnapshot(snapshot); err != nil {
			return err
		}
	}

	return nil
}

// GetAllFills returns the trade log in date order.
func (b *BacktestState) GetAllFills() ([]types.Fill, error) {
	rows, err := b.sq.
		Select(
			"id", "date", "symbol", "side", "CAST(price AS VARCHAR)", "quantity", "CAST(amount AS VARCHAR)",
			"CAST(commission AS VARCHAR)", "CAST(stamp_duty AS VARCHAR)", "CAST(cash_delta AS VARCHAR)",
		).
		From("trades").
		OrderBy("date ASC", "rowid ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var fills []types.Fill

	for rows.Next() {
		var (
			fill                                            types.Fill
			side                                            string
			price, amount, commission, stampDuty, cashDelta string
		)

		err := rows.Scan(&fill.ID, &fill.Date, &fill.Symbol, &side, &price, &fill.Quantity,
			&amount, &commission, &stampDuty, &cashDelta)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		fill.Side = types.PurchaseType(side)

		if fill.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}

		fill.Amount = decimal.RequireFromString(amount)
		fill.Commission = decimal.RequireFromString(commission)
		fill.StampDuty = decimal.RequireFromString(stampDuty)
		fill.CashDelta = decimal.RequireFromString(cashDelta)
		fill.Date = types.NormalizeDate(fill.Date)

		fills = append(fills, fill)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return fills, nil
}

// GetCurve returns the valuation curve in date order.
func (b *BacktestState) GetCurve() ([]types.Snapshot, error) {
	rows, err := b.sq.
		Select(
			"date", "CAST(cash AS VARCHAR)", "CAST(position_value AS VARCHAR)", "CAST(total_assets AS VARCHAR)",
			"symbol", "quantity", "carried_forward",
		).
		From("curve").
		OrderBy("date ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query curve: %w", err)
	}
	defer rows.Close()

	var curve []types.Snapshot

	for rows.Next() {
		var (
			snapshot                         types.Snapshot
			cash, positionValue, totalAssets string
		)

		err := rows.Scan(&snapshot.Date, &cash, &positionValue, &totalAssets,
			&snapshot.Symbol, &snapshot.Quantity, &snapshot.CarriedForward)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snapshot.Date = types.NormalizeDate(snapshot.Date)
		snapshot.Cash = decimal.RequireFromString(cash)
		snapshot.PositionValue = decimal.RequireFromString(positionValue)
		snapshot.TotalAssets = decimal.RequireFromString(totalAssets)

		curve = append(curve, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating curve: %w", err)
	}

	return curve, nil
}

// Cleanup resets the database state
func (b *BacktestState) Cleanup() error {
	// Use raw SQL for dropping tables - Squirrel doesn't have DROP syntax
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS curve;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Close releases the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}

// Write saves the trade log and the curve to the specified directory
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create directory", err)
	}

	tradesPath := filepath.Join(path, TradesParquetFile)
	tradesCSVPath := filepath.Join(path, TradesCSVFile)
	curvePath := filepath.Join(path, CurveParquetFile)

	// COPY is not supported by squirrel
	exports := []struct {
		query string
		what  string
	}{
		{fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY date, rowid) TO '%s' (FORMAT PARQUET)`, quotePath(tradesPath)), "trades parquet"},
		{fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY date, rowid) TO '%s' (HEADER, DELIMITER ',')`, quotePath(tradesCSVPath)), "trades csv"},
		{fmt.Sprintf(`COPY (SELECT * FROM curve ORDER BY date) TO '%s' (FORMAT PARQUET)`, quotePath(curvePath)), "curve parquet"},
	}

	for _, export := range exports {
		if _, err := b.db.Exec(export.query); err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s", export.what)
		}
	}

	b.logger.Info("Successfully exported backtest results",
		zap.String("trades", tradesPath),
		zap.String("trades_csv", tradesCSVPath),
		zap.String("curve", curvePath),
	)

	return nil
}

// Load replaces the state with the trade log and curve exported by Write into path.
// A missing curve file leaves the curve empty.
func (b *BacktestState) Load(path string) error {
	if err := b.Cleanup(); err != nil {
		return err
	}

	tradesPath := filepath.Join(path, TradesParquetFile)
	if _, err := os.Stat(tradesPath); err != nil {
		return errors.Wrap(errors.ErrCodeDataNotFound, "trades file not found", err)
	}

	imports := []struct {
		table string
		file  string
	}{
		{"trades", tradesPath},
		{"curve", filepath.Join(path, CurveParquetFile)},
	}

	for _, imp := range imports {
		if _, err := os.Stat(imp.file); err != nil {
			continue
		}

		query := fmt.Sprintf(`INSERT INTO %s SELECT * FROM read_parquet('%s')`, imp.table, quotePath(imp.file))
		if _, err := b.db.Exec(query); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to load %s", imp.file)
		}
	}

	return nil
}

func money(d decimal.Decimal) squirrel.Sqlizer {
	return squirrel.Expr("CAST(? AS DECIMAL(28, 8))", d.String())
}

func quotePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
