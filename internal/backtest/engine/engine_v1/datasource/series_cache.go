package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
)

type series struct {
	bars []types.MarketData
	// index maps a calendar day (unix seconds) to its position in bars
	index map[int64]int
}

// SeriesCache loads each symbol's full series once and answers date lookups from memory.
// It is safe for concurrent readers.
type SeriesCache struct {
	source DataSource
	cache  map[string]*series
	mu     sync.RWMutex
}

func NewSeriesCache(source DataSource) *SeriesCache {
	return &SeriesCache{
		source: source,
		cache:  make(map[string]*series),
		mu:     sync.RWMutex{},
	}
}

// Symbols returns the symbols of the underlying source.
func (c *SeriesCache) Symbols() ([]string, error) {
	return c.source.Symbols()
}

// Series returns every bar of symbol in date order. A symbol without data gives an empty slice.
func (c *SeriesCache) Series(symbol string) ([]types.MarketData, error) {
	s, err := c.load(symbol)
	if err != nil {
		return nil, err
	}

	return s.bars, nil
}

// Bar returns the bar of symbol on date, if that day traded.
func (c *SeriesCache) Bar(symbol string, date time.Time) (optional.Option[types.MarketData], error) {
	s, err := c.load(symbol)
	if err != nil {
		return optional.None[types.MarketData](), err
	}

	i, ok := s.index[types.NormalizeDate(date).Unix()]
	if !ok {
		return optional.None[types.MarketData](), nil
	}

	return optional.Some(s.bars[i]), nil
}

// History returns up to count bars of symbol dated strictly before date, oldest first.
func (c *SeriesCache) History(symbol string, date time.Time, count int) ([]types.MarketData, error) {
	s, err := c.load(symbol)
	if err != nil {
		return nil, err
	}

	day := types.NormalizeDate(date)
	end := sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Time.Before(day)
	})

	begin := 0
	if count > 0 && end-count > 0 {
		begin = end - count
	}

	return s.bars[begin:end], nil
}

// Reset drops every cached series.
func (c *SeriesCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*series)
}

func (c *SeriesCache) load(symbol string) (*series, error) {
	c.mu.RLock()
	s, ok := c.cache[symbol]
	c.mu.RUnlock()

	if ok {
		return s, nil
	}

	s = &series{index: make(map[int64]int)}

	for bar, err := range c.source.ReadAll(symbol, optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNoData) {
				break
			}

			return nil, err
		}

		bar.Time = types.NormalizeDate(bar.Time)
		s.index[bar.Time.Unix()] = len(s.bars)
		s.bars = append(s.bars, bar)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another reader may have loaded it meanwhile
	if existing, ok := c.cache[symbol]; ok {
		return existing, nil
	}

	c.cache[symbol] = s

	return s, nil
}
