package strategy

import (
	"context"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
)

// ContextSelector is a selector whose scan can be cancelled.
type ContextSelector interface {
	SelectContext(ctx context.Context, date time.Time) (optional.Option[string], error)
}

// ProgressFunc is called after each evaluated date.
type ProgressFunc func(current int, total int)

// Precompute evaluates selector on every date and returns the decisions as a
// LookupSelector named after selector. The first selector error aborts.
func Precompute(ctx context.Context, selector engine.Selector, dates []time.Time, lookbackDays int, progress ProgressFunc) (*LookupSelector, error) {
	lookup := NewLookupSelector(lookbackDays)
	if named, ok := selector.(engine.Named); ok {
		lookup.WithName(named.Name())
	}

	withContext, cancellable := selector.(ContextSelector)

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			symbol optional.Option[string]
			err    error
		)

		if cancellable {
			symbol, err = withContext.SelectContext(ctx, date)
		} else {
			symbol, err = selector.Select(date)
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeSelectorFailed, err, "precompute failed on %s", types.NormalizeDate(date).Format(time.DateOnly))
		}

		lookup.Set(date, symbol)

		if progress != nil {
			progress(i+1, len(dates))
		}
	}

	return lookup, nil
}
