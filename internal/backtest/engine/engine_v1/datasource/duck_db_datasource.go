package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

const (
	columnOutVol = "outvol"
	columnInVol  = "invol"
)

var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

// DuckDBDataSource reads a directory holding one <symbol>.parquet file per symbol.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	dir     string
	symbols []string
	// hasFlow caches whether a symbol's file carries outvol/invol
	hasFlow map[string]bool
	mu      sync.Mutex
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// Use ":memory:" unless the catalog should outlive the process.
// This is distinct from Initialize() which points the source at the parquet directory.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = db.Exec(`SET threads=4;`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to set DuckDB options", err)
	}

	return &DuckDBDataSource{
		db:      db,
		logger:  logger,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		hasFlow: make(map[string]bool),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "cannot open data directory %s", path)
	}

	if !info.IsDir() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s is not a directory", path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.parquet"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to list parquet files", err)
	}

	symbols := make([]string, 0, len(files))
	for _, file := range files {
		symbols = append(symbols, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	}

	sort.Strings(symbols)

	d.mu.Lock()
	d.dir = path
	d.symbols = symbols
	d.hasFlow = make(map[string]bool)
	d.mu.Unlock()

	d.logger.Info("DuckDB data source ready",
		zap.String("path", path),
		zap.Int("symbols", len(symbols)),
	)

	return nil
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dir == "" {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	return append([]string(nil), d.symbols...), nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	table, err := d.table(symbol)
	if err != nil {
		return 0, err
	}

	query, args, err := d.rangeFilter(d.sq.Select("COUNT(*)").From(table), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count bars of %s", symbol)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		table, err := d.table(symbol)
		if err != nil {
			yield(types.MarketData{}, err)

			return
		}

		withFlow, err := d.flowColumns(symbol, table)
		if err != nil {
			yield(types.MarketData{}, err)

			return
		}

		columns := append([]string(nil), requiredColumns...)
		if withFlow {
			columns = append(columns, columnOutVol, columnInVol)
		}

		query, args, err := d.rangeFilter(d.sq.Select(columns...).From(table), start, end).
			OrderBy("date ASC").
			ToSql()
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query bars of %s", symbol))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				date                           time.Time
				open, high, low, close, volume float64
				outVol, inVol                  sql.NullFloat64
			)

			dest := []any{&date, &open, &high, &low, &close, &volume}
			if withFlow {
				dest = append(dest, &outVol, &inVol)
			}

			if err := rows.Scan(dest...); err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err))

				return
			}

			bar := types.MarketData{
				Symbol: symbol,
				Time:   types.NormalizeDate(date),
				Open:   open,
				High:   high,
				Low:    low,
				Close:  close,
				Volume: volume,
				OutVol: optional.None[float64](),
				InVol:  optional.None[float64](),
			}

			if outVol.Valid {
				bar.OutVol = optional.Some(outVol.Float64)
			}

			if inVol.Valid {
				bar.InVol = optional.Some(inVol.Float64)
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

// table returns the read_parquet expression of symbol.
func (d *DuckDBDataSource) table(symbol string) (string, error) {
	d.mu.Lock()
	dir := d.dir
	d.mu.Unlock()

	if dir == "" {
		return "", errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	path := filepath.Join(dir, symbol+".parquet")
	if _, err := os.Stat(path); err != nil {
		return "", errors.Newf(errors.ErrCodeNoData, "no data file for %s", symbol)
	}

	// squirrel can't bind a table function argument
	return fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''")), nil
}

// flowColumns reports whether the file of symbol has both flow columns.
func (d *DuckDBDataSource) flowColumns(symbol string, table string) (bool, error) {
	d.mu.Lock()
	cached, ok := d.hasFlow[symbol]
	d.mu.Unlock()

	if ok {
		return cached, nil
	}

	rows, err := d.db.Query("DESCRIBE SELECT * FROM " + table)
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to describe %s", symbol)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read describe columns", err)
	}

	found := make(map[string]bool)

	for rows.Next() {
		values := make([]sql.NullString, len(columnNames))
		dest := make([]any, len(columnNames))

		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan describe row", err)
		}

		// column_name is the first column of DESCRIBE
		found[strings.ToLower(values[0].String)] = true
	}

	for _, column := range requiredColumns {
		if !found[column] {
			return false, errors.Newf(errors.ErrCodeInvalidParameter, "%s is missing column %s", symbol, column)
		}
	}

	withFlow := found[columnOutVol] && found[columnInVol]

	d.mu.Lock()
	d.hasFlow[symbol] = withFlow
	d.mu.Unlock()

	return withFlow, nil
}

func (d *DuckDBDataSource) rangeFilter(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"CAST(date AS DATE)": types.NormalizeDate(start.Unwrap())})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"CAST(date AS DATE)": types.NormalizeDate(end.Unwrap())})
	}

	return query
}
