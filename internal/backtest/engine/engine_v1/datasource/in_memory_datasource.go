package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
)

// InMemoryDataSource holds fully materialized series, keyed by symbol.
// Series are sorted by date on load and never mutated afterwards.
type InMemoryDataSource struct {
	data map[string][]types.MarketData
	mu   sync.RWMutex
}

// NewInMemoryDataSource groups bars by symbol. Bar dates are normalized to calendar days.
func NewInMemoryDataSource(bars []types.MarketData) *InMemoryDataSource {
	ds := &InMemoryDataSource{
		data: make(map[string][]types.MarketData),
		mu:   sync.RWMutex{},
	}

	ds.load(bars)

	return ds
}

// Preload copies everything the underlying source has for the given symbols into memory.
// All symbols are loaded when symbols is empty.
func Preload(underlying DataSource, symbols []string, start optional.Option[time.Time], end optional.Option[time.Time]) (*InMemoryDataSource, error) {
	if len(symbols) == 0 {
		all, err := underlying.Symbols()
		if err != nil {
			return nil, err
		}

		symbols = all
	}

	var bars []types.MarketData

	for _, symbol := range symbols {
		for bar, err := range underlying.ReadAll(symbol, start, end) {
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to preload %s", symbol)
			}

			bars = append(bars, bar)
		}
	}

	return NewInMemoryDataSource(bars), nil
}

func (ds *InMemoryDataSource) load(bars []types.MarketData) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for _, bar := range bars {
		bar.Time = types.NormalizeDate(bar.Time)
		ds.data[bar.Symbol] = append(ds.data[bar.Symbol], bar)
	}

	for symbol := range ds.data {
		series := ds.data[symbol]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Time.Before(series[j].Time)
		})
	}
}

// Initialize implements DataSource. The data is already in memory.
func (ds *InMemoryDataSource) Initialize(path string) error {
	return nil
}

// Symbols implements DataSource.
func (ds *InMemoryDataSource) Symbols() ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbols := make([]string, 0, len(ds.data))
	for symbol := range ds.data {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// ReadAll implements DataSource.
func (ds *InMemoryDataSource) ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		ds.mu.RLock()
		series := ds.data[symbol]
		ds.mu.RUnlock()

		for _, bar := range series {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (ds *InMemoryDataSource) Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for range ds.ReadAll(symbol, start, end) {
		count++
	}

	return count, nil
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	return nil
}
