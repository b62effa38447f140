package main

import (
	"fmt"
	"strings"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Application states.
const (
	StateRunList = iota
	StateLoading
	StateTradeTable
	StateSymbolFilter
)

// Model is the main Bubble Tea model for the results browser.
type Model struct {
	state        int
	runList      list.Model
	symbolFilter textinput.Model
	tradeTable   table.Model
	loader       TradeLoader
	run          Run
	trades       []types.Fill
	symbols      []string
	err          error
	width        int
	height       int
}

// NewModel creates a new Model listing runs. loader reads the trades of the selected run.
func NewModel(runs []Run, loader TradeLoader) Model {
	return Model{
		state:        StateRunList,
		runList:      NewRunList(runs),
		symbolFilter: NewSymbolFilter(),
		tradeTable:   NewTradeTable(),
		loader:       loader,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateSymbolFilter {
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.runList.SetSize(msg.Width, msg.Height-4)
		m.tradeTable.SetWidth(msg.Width)
		m.tradeTable.SetHeight(msg.Height - 8)
		return m, nil

	case TradesLoadedMsg:
		m.run = msg.Run
		m.trades = msg.Trades
		m.symbols = nil
		m.err = nil
		m.tradeTable = UpdateTableRows(m.tradeTable, m.trades)
		m.state = StateTradeTable
		return m, nil

	case LoadErrorMsg:
		m.err = msg.Err
		m.state = StateRunList
		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateRunList:
		return m.updateRunList(msg)
	case StateTradeTable:
		return m.updateTradeTable(msg)
	case StateSymbolFilter:
		return m.updateSymbolFilter(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolFilter:
		m.symbolFilter.Blur()
		m.state = StateTradeTable
	case StateTradeTable:
		m.trades = nil
		m.symbols = nil
		m.err = nil
		m.symbolFilter.Reset()
		m.tradeTable = UpdateTableRows(m.tradeTable, nil)
		m.state = StateRunList
	}
	return m, nil
}

func (m Model) updateRunList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.runList.SelectedItem().(runItem); ok {
				m.state = StateLoading
				return m, m.loadTrades(item.run)
			}
		}
	}

	var cmd tea.Cmd
	m.runList, cmd = m.runList.Update(msg)
	return m, cmd
}

func (m Model) updateTradeTable(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "/":
			m.state = StateSymbolFilter
			m.symbolFilter.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.tradeTable, cmd = m.tradeTable.Update(msg)
	return m, cmd
}

func (m Model) updateSymbolFilter(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.symbols = ParseSymbols(m.symbolFilter.Value())
			m.tradeTable = UpdateTableRows(m.tradeTable, FilterTrades(m.trades, m.symbols))
			m.tradeTable.GotoTop()
			m.symbolFilter.Blur()
			m.state = StateTradeTable
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.symbolFilter, cmd = m.symbolFilter.Update(msg)
	return m, cmd
}

// loadTrades returns a command that reads the trade log of run.
func (m Model) loadTrades(run Run) tea.Cmd {
	loader := m.loader

	return func() tea.Msg {
		if loader == nil {
			return LoadErrorMsg{Err: fmt.Errorf("no trade loader")}
		}

		trades, err := loader(run.Dir)
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return TradesLoadedMsg{Run: run, Trades: trades}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateRunList:
		s.WriteString(TitleStyle.Render("AkBack - Backtest Results"))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.runList.Items()) == 0 {
			s.WriteString("No backtest runs found.\n")
		} else {
			s.WriteString(m.runList.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to open, q to quit"))

	case StateLoading:
		s.WriteString(TitleStyle.Render("Loading trades..."))
		s.WriteString("\n")

	case StateTradeTable:
		stats := m.run.Stats
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Trades - %s (%s)", stats.StrategyName, stats.Mode)))
		s.WriteString("\n")
		s.WriteString(fmt.Sprintf("Return %s | Max drawdown %.2f%% | Sharpe %.2f | Fees %.2f\n\n",
			FormatPct(stats.Returns.TotalReturnPct), stats.Returns.MaxDrawdownPct,
			stats.Returns.SharpeRatio, stats.Fees.TotalFees))

		if len(m.trades) == 0 {
			s.WriteString("No trades in this run.\n")
		} else {
			s.WriteString(m.tradeTable.View())
		}

		s.WriteString("\n")

		filter := "all symbols"
		if len(m.symbols) > 0 {
			filter = strings.Join(m.symbols, ", ")
		}

		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: back | /: filter | Showing: %s", filter)))

	case StateSymbolFilter:
		s.WriteString(TitleStyle.Render("Filter Symbols"))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated symbols, empty for all:\n\n")
		s.WriteString(m.symbolFilter.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))
	}

	return s.String()
}
