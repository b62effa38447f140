package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)
)

// FormatPct formats a percentage with an arrow for its sign.
func FormatPct(pct float64) string {
	s := fmt.Sprintf("%.2f%%", pct)

	if pct > 0 {
		return s + " ▲"
	} else if pct < 0 {
		return s + " ▼"
	}

	return s
}

// FormatCashDelta formats the signed cash change of a fill.
func FormatCashDelta(delta decimal.Decimal) string {
	s := delta.StringFixed(2)

	if delta.IsPositive() {
		return "+" + s
	}

	return s
}
