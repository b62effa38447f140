package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// MarketData is one daily bar for one symbol.
// OutVol and InVol are the active-buy and active-sell volumes produced by the
// tick-flow enhancement. Most bars do not have them.
type MarketData struct {
	Symbol string                   `csv:"symbol" json:"symbol"`
	Time   time.Time                `csv:"date" json:"date"`
	Open   float64                  `csv:"open" json:"open"`
	High   float64                  `csv:"high" json:"high"`
	Low    float64                  `csv:"low" json:"low"`
	Close  float64                  `csv:"close" json:"close"`
	Volume float64                  `csv:"volume" json:"volume"`
	OutVol optional.Option[float64] `csv:"outvol" json:"outvol"`
	InVol  optional.Option[float64] `csv:"invol" json:"invol"`
}

// HasFlow reports whether both flow volumes are present.
func (m MarketData) HasFlow() bool {
	return m.OutVol.IsSome() && m.InVol.IsSome()
}

// Date returns the calendar day of the bar.
func (m MarketData) Date() time.Time {
	return NormalizeDate(m.Time)
}

// NormalizeDate truncates t to midnight UTC of its calendar day.
// Every date comparison in the simulation goes through here.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDays returns every calendar day from start to end inclusive.
// Weekends and holidays are included; the runner decides what to do with them.
func CalendarDays(start, end time.Time) []time.Time {
	start = NormalizeDate(start)
	end = NormalizeDate(end)

	if end.Before(start) {
		return nil
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days
}
