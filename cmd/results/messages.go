package main

import "github.com/JZJJake/AkBack/internal/types"

// TradesLoadedMsg carries the trade log of the selected run.
type TradesLoadedMsg struct {
	Run    Run
	Trades []types.Fill
}

// LoadErrorMsg indicates the trade log could not be read.
type LoadErrorMsg struct {
	Err error
}
