package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JZJJake/AkBack/internal/types"
	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBWriter buffers bars in an in-memory DuckDB table and exports them as
// <outputPath>/<symbol>.parquet, the layout DuckDBDataSource reads.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string // Directory to write the Parquet files
	// includeFlow adds the outvol/invol columns
	includeFlow bool
}

// NewDuckDBWriter creates a new DuckDBWriter.
// outputPath specifies the directory where the Parquet files will be saved.
func NewDuckDBWriter(outputPath string, includeFlow bool) MarketDataWriter {
	return &DuckDBWriter{
		outputPath:  outputPath,
		includeFlow: includeFlow,
	}
}

// Initialize sets up the DuckDB writer.
// It establishes a connection, creates the bars table, begins a transaction,
// and prepares the insert statement.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			date DATE,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			outvol DOUBLE,
			invol DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO bars (symbol, date, open, high, low, close, volume, outvol, invol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// Write persists a single bar using the prepared statement within the transaction.
func (w *DuckDBWriter) Write(data types.MarketData) error {
	if w.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	if data.Symbol == "" {
		return fmt.Errorf("bar on %s has no symbol", data.Time.Format("2006-01-02"))
	}

	var outVol, inVol sql.NullFloat64
	if data.OutVol.IsSome() {
		outVol = sql.NullFloat64{Float64: data.OutVol.Unwrap(), Valid: true}
	}

	if data.InVol.IsSome() {
		inVol = sql.NullFloat64{Float64: data.InVol.Unwrap(), Valid: true}
	}

	_, err := w.stmt.Exec(
		data.Symbol,
		types.NormalizeDate(data.Time),
		data.Open,
		data.High,
		data.Low,
		data.Close,
		data.Volume,
		outVol,
		inVol,
	)
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	return nil
}

// Finalize commits the transaction and exports every symbol to its own Parquet file.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err = w.stmt.Close(); err != nil {
		return "", fmt.Errorf("failed to close statement: %w", err)
	}

	w.stmt = nil

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil

	if err = os.MkdirAll(w.outputPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	rows, err := w.db.Query(`SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return "", fmt.Errorf("failed to list symbols: %w", err)
	}

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			rows.Close()

			return "", fmt.Errorf("failed to scan symbol: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	rows.Close()

	columns := "date, open, high, low, close, volume"
	if w.includeFlow {
		columns += ", outvol, invol"
	}

	for _, symbol := range symbols {
		path := filepath.Join(w.outputPath, symbol+".parquet")
		query := fmt.Sprintf(`COPY (SELECT %s FROM bars WHERE symbol = '%s' ORDER BY date) TO '%s' (FORMAT PARQUET)`,
			columns, quote(symbol), quote(path))

		if _, err = w.db.Exec(query); err != nil {
			return "", fmt.Errorf("failed to export %s to Parquet: %w", symbol, err)
		}
	}

	return w.outputPath, nil
}

// Close cleans up resources used by the writer, including closing the statement
// and the database connection.
func (w *DuckDBWriter) Close() error {
	var closeErrors []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close statement: %w", err))
		}

		w.stmt = nil
	}

	// Finalize was not called or failed
	if w.tx != nil {
		_ = w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close db connection: %w", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		errMsg := "errors occurred during close:"
		for _, e := range closeErrors {
			errMsg += fmt.Sprintf("\n- %v", e)
		}

		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// GetOutputPath returns the output directory.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

// WriteAll writes bars to outputPath in one go.
func WriteAll(outputPath string, includeFlow bool, bars []types.MarketData) error {
	w := NewDuckDBWriter(outputPath, includeFlow)
	if err := w.Initialize(); err != nil {
		return err
	}
	defer w.Close()

	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return err
		}
	}

	_, err := w.Finalize()

	return err
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
