package datasource

import (
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
)

// Collect drains ReadAll into a slice. An empty range is reported as ErrCodeNoData.
func Collect(ds DataSource, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.MarketData, error) {
	var bars []types.MarketData

	for bar, err := range ds.ReadAll(symbol, start, end) {
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoData, "no bars for %s in the requested range", symbol)
	}

	return bars, nil
}

func inRange(date time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && date.Before(types.NormalizeDate(start.Unwrap())) {
		return false
	}

	if end.IsSome() && date.After(types.NormalizeDate(end.Unwrap())) {
		return false
	}

	return true
}
