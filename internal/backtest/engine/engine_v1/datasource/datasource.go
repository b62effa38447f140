package datasource

import (
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
)

// DataSource is a read-only source of daily bars, one series per symbol.
type DataSource interface {
	// Initialize initializes the data source with the given data path
	Initialize(path string) error
	// Symbols returns every symbol with data, sorted.
	Symbols() ([]string, error)
	// ReadAll yields the bars of symbol in date order. Bounds are inclusive calendar days.
	ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// Count returns the number of bars of symbol in the range
	Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources
	Close() error
}
