package engine

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
)

// getResultFolder returns <results>/<mode>/<name>/<start>_<end>/<run id>.
func getResultFolder(resultsFolder string, mode engine.RunMode, name string, start optional.Option[time.Time], end optional.Option[time.Time], runID string) string {
	startStr := "all"
	endStr := "all"

	if start.IsSome() {
		startStr = start.Unwrap().Format("20060102")
	}

	if end.IsSome() {
		endStr = end.Unwrap().Format("20060102")
	}

	return filepath.Join(resultsFolder, string(mode), name, fmt.Sprintf("%s_%s", startStr, endStr), runID)
}

func notifyStart(callbacks engine.LifecycleCallbacks, runID string, mode engine.RunMode, totalDays int) error {
	if callbacks.OnBacktestStart == nil {
		return nil
	}

	return (*callbacks.OnBacktestStart)(runID, mode, totalDays)
}

func notifyFill(callbacks engine.LifecycleCallbacks, fill types.Fill) error {
	if callbacks.OnFill == nil {
		return nil
	}

	return (*callbacks.OnFill)(fill)
}

func notifyProgress(callbacks engine.LifecycleCallbacks, current int, total int) error {
	if callbacks.OnProcessData == nil {
		return nil
	}

	return (*callbacks.OnProcessData)(current, total)
}

// snapshot values the account with a single price.
func snapshot(account *Account, date time.Time, symbol string, price float64) types.Snapshot {
	prices := map[string]float64{}
	if symbol != "" {
		prices[symbol] = price
	}

	var quantity int64
	if position := account.Position(symbol); position.IsSome() {
		quantity = position.Unwrap().Total
	} else {
		symbol = ""
	}

	positionValue := account.PositionValue(prices)

	return types.Snapshot{
		Date:          types.NormalizeDate(date),
		Cash:          account.Cash(),
		PositionValue: positionValue,
		TotalAssets:   account.Cash().Add(positionValue),
		Symbol:        symbol,
		Quantity:      quantity,
	}
}
