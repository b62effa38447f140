package writer

import (
	"github.com/JZJJake/AkBack/internal/types"
)

// MarketDataWriter defines the interface for writing market data to a destination.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single daily bar.
	Write(data types.MarketData) error
	// Finalize completes the writing process and exports one file per symbol.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output directory.
	GetOutputPath() string
}
