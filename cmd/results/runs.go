package main

import (
	"io/fs"
	"path/filepath"
	"sort"

	engine "github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
)

// Run is one backtest run found under the results directory.
type Run struct {
	Dir   string
	Stats types.TradeStats
}

// TradeLoader reads the trade log of a run directory.
type TradeLoader func(dir string) ([]types.Fill, error)

// FindRuns walks root for stats files and returns the runs, newest first.
func FindRuns(root string) ([]Run, error) {
	var runs []Run

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || d.Name() != engine.StatsFile {
			return nil
		}

		stats, err := types.ReadTradeStats(path)
		if err != nil {
			return err
		}

		for _, s := range stats {
			runs = append(runs, Run{Dir: filepath.Dir(path), Stats: s})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Stats.Timestamp.After(runs[j].Stats.Timestamp)
	})

	return runs, nil
}

// LoadTrades reads the exported trade log of dir through DuckDB.
func LoadTrades(dir string) ([]types.Fill, error) {
	state, err := engine.NewBacktestState(logger.NewNopLogger())
	if err != nil {
		return nil, err
	}
	defer state.Close()

	if err := state.Initialize(); err != nil {
		return nil, err
	}

	if err := state.Load(dir); err != nil {
		return nil, err
	}

	return state.GetAllFills()
}
