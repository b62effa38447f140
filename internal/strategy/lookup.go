package strategy

import (
	"os"
	"sort"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

const LookupSelectorName = "lookup"

// Signal is one precomputed decision. An empty Symbol means hold cash.
type Signal struct {
	Date   string `yaml:"date" json:"date"`
	Symbol string `yaml:"symbol" json:"symbol"`
}

// LookupSelector answers Select from a table of precomputed decisions.
//
// A date without an entry falls back to the latest entry of the previous
// lookbackDays calendar days. There is no trading calendar: a closure longer
// than the window (e.g. the October holiday week) gives None.
type LookupSelector struct {
	name         string
	table        map[int64]optional.Option[string]
	lookbackDays int
}

func NewLookupSelector(lookbackDays int) *LookupSelector {
	return &LookupSelector{
		name:         LookupSelectorName,
		table:        make(map[int64]optional.Option[string]),
		lookbackDays: max(lookbackDays, 0),
	}
}

// WithName sets the name reported in the run stats.
func (l *LookupSelector) WithName(name string) *LookupSelector {
	l.name = name

	return l
}

func (l *LookupSelector) Name() string {
	return l.name
}

// Set records the decision for date, replacing any earlier one.
func (l *LookupSelector) Set(date time.Time, symbol optional.Option[string]) {
	l.table[types.NormalizeDate(date).Unix()] = symbol
}

func (l *LookupSelector) Len() int {
	return len(l.table)
}

// Select implements engine.Selector.
func (l *LookupSelector) Select(date time.Time) (optional.Option[string], error) {
	day := types.NormalizeDate(date)

	for i := 0; i <= l.lookbackDays; i++ {
		if symbol, ok := l.table[day.AddDate(0, 0, -i).Unix()]; ok {
			return symbol, nil
		}
	}

	return optional.None[string](), nil
}

// Signals returns the table in date order.
func (l *LookupSelector) Signals() []Signal {
	keys := make([]int64, 0, len(l.table))
	for key := range l.table {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	signals := make([]Signal, 0, len(keys))
	for _, key := range keys {
		signals = append(signals, Signal{
			Date:   time.Unix(key, 0).UTC().Format(time.DateOnly),
			Symbol: l.table[key].TakeOr(""),
		})
	}

	return signals
}

// LoadSignals reads a YAML list of {date, symbol} entries into a LookupSelector.
func LoadSignals(path string, lookbackDays int) (*LookupSelector, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to read signals %s", path)
	}

	var signals []Signal
	if err := yaml.Unmarshal(content, &signals); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to parse signals %s", path)
	}

	selector := NewLookupSelector(lookbackDays)

	for i, signal := range signals {
		date, err := time.Parse(time.DateOnly, signal.Date)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "signal %d has an invalid date %q", i, signal.Date)
		}

		if signal.Symbol == "" {
			selector.Set(date, optional.None[string]())
		} else {
			selector.Set(date, optional.Some(signal.Symbol))
		}
	}

	return selector, nil
}

// WriteSignals writes the table of l in the format LoadSignals reads.
func WriteSignals(path string, l *LookupSelector) error {
	content, err := yaml.Marshal(l.Signals())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to encode signals", err)
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "failed to write signals %s", path)
	}

	return nil
}
