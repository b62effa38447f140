package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// runItem implements list.Item for the run list.
type runItem struct {
	run Run
}

func (i runItem) Title() string {
	s := i.run.Stats
	if s.Symbol != "" {
		return fmt.Sprintf("%s (%s %s)", s.StrategyName, s.Mode, s.Symbol)
	}

	return fmt.Sprintf("%s (%s)", s.StrategyName, s.Mode)
}

func (i runItem) Description() string {
	s := i.run.Stats

	return fmt.Sprintf("%s - %s | return %s | %d trades | %s",
		s.StartDate.Format(time.DateOnly),
		s.EndDate.Format(time.DateOnly),
		FormatPct(s.Returns.TotalReturnPct),
		s.TradeResult.NumberOfTrades,
		s.Timestamp.Format(time.DateTime),
	)
}

func (i runItem) FilterValue() string { return i.run.Stats.StrategyName }

// NewRunList creates a new list for run selection.
func NewRunList(runs []Run) list.Model {
	items := make([]list.Item, 0, len(runs))
	for _, run := range runs {
		items = append(items, runItem{run: run})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Backtest Run"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewSymbolFilter creates a new text input for filtering trades by symbol.
func NewSymbolFilter() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "000001,600000"
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// ParseSymbols parses comma-separated symbols into a slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

// NewTradeTable creates a new table for displaying fills.
func NewTradeTable() table.Model {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Symbol", Width: 10},
		{Title: "Side", Width: 6},
		{Title: "Price", Width: 10},
		{Title: "Quantity", Width: 10},
		{Title: "Amount", Width: 14},
		{Title: "Fees", Width: 10},
		{Title: "Cash", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// FilterTrades returns the fills of the given symbols. No symbols keeps every fill.
func FilterTrades(fills []types.Fill, symbols []string) []types.Fill {
	if len(symbols) == 0 {
		return fills
	}

	keep := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		keep[s] = struct{}{}
	}

	filtered := make([]types.Fill, 0, len(fills))

	for _, fill := range fills {
		if _, ok := keep[strings.ToUpper(fill.Symbol)]; ok {
			filtered = append(filtered, fill)
		}
	}

	return filtered
}

// UpdateTableRows fills the table with the trades in date order.
func UpdateTableRows(t table.Model, fills []types.Fill) table.Model {
	rows := make([]table.Row, 0, len(fills))

	for _, fill := range fills {
		rows = append(rows, table.Row{
			fill.Date.Format(time.DateOnly),
			fill.Symbol,
			string(fill.Side),
			fill.Price.StringFixed(2),
			fmt.Sprintf("%d", fill.Quantity),
			fill.Amount.StringFixed(2),
			fill.TotalFees().StringFixed(2),
			FormatCashDelta(fill.CashDelta),
		})
	}

	t.SetRows(rows)

	return t
}
