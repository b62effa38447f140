package strategy

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/mocks"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

const sniperBars = 35

var sniperStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type SniperSelectorTestSuite struct {
	suite.Suite
}

func TestSniperSelectorSuite(t *testing.T) {
	suite.Run(t, new(SniperSelectorTestSuite))
}

// sniperSeries builds a steady uptrend whose flow line dips on the second to
// last bar and turns up on the last one, with a volume spike on the last bar.
// lastRaw sets the final raw flow value: 6 gives a ZDP of -6.67, 0 gives -8.67.
func sniperSeries(symbol string, base float64, lastRaw float64) []types.MarketData {
	bars := make([]types.MarketData, 0, sniperBars)

	for i := 0; i < sniperBars; i++ {
		closePrice := base + 0.1*float64(i)
		openPrice := closePrice - 0.05
		high := closePrice + 0.02
		volume := 1000.0
		raw := -10.0

		switch i {
		case sniperBars - 2:
			raw = -16
		case sniperBars - 1:
			raw = lastRaw
			volume = 2000
			high = closePrice
		}

		diff := raw * volume / 100

		bars = append(bars, types.MarketData{
			Symbol: symbol,
			Time:   sniperStart.AddDate(0, 0, i),
			Open:   openPrice,
			High:   high,
			Low:    openPrice - 0.02,
			Close:  closePrice,
			Volume: volume,
			OutVol: optional.Some((volume + diff) / 2),
			InVol:  optional.Some((volume - diff) / 2),
		})
	}

	return bars
}

func lastBarDate() time.Time {
	return sniperStart.AddDate(0, 0, sniperBars-1)
}

func decisionDate() time.Time {
	return lastBarDate().AddDate(0, 0, 1)
}

func newTestSniper(info *StockInfo, bars ...[]types.MarketData) *SniperSelector {
	var all []types.MarketData
	for _, series := range bars {
		all = append(all, series...)
	}

	series := datasource.NewSeriesCache(datasource.NewInMemoryDataSource(all))

	return NewSniperSelector(DefaultSniperConfig(), series, info, nil)
}

func (suite *SniperSelectorTestSuite) TestPicksSignal() {
	selector := newTestSniper(nil, sniperSeries("000001", 10, 6))

	symbol, err := selector.Select(decisionDate())
	suite.Require().NoError(err)
	suite.Equal(optional.Some("000001"), symbol)
	suite.Equal(SniperSelectorName, selector.Name())
}

func (suite *SniperSelectorTestSuite) TestUsesOnlyPriorBars() {
	selector := newTestSniper(nil, sniperSeries("000001", 10, 6))

	// on the last bar's own date that bar is not visible yet
	symbol, err := selector.Select(lastBarDate())
	suite.Require().NoError(err)
	suite.True(symbol.IsNone())

	// a date after a gap still sees the same last bar
	symbol, err = selector.Select(decisionDate().AddDate(0, 0, 3))
	suite.Require().NoError(err)
	suite.Equal(optional.Some("000001"), symbol)
}

func (suite *SniperSelectorTestSuite) TestPicksHighestZDP() {
	selector := newTestSniper(nil,
		sniperSeries("000001", 10, 0),
		sniperSeries("000002", 10, 6),
	)

	symbol, err := selector.Select(decisionDate())
	suite.Require().NoError(err)
	suite.Equal(optional.Some("000002"), symbol)
}

func (suite *SniperSelectorTestSuite) TestTieGoesToFirstSymbol() {
	for i := 0; i < 5; i++ {
		selector := newTestSniper(nil,
			sniperSeries("600000", 10, 6),
			sniperSeries("000002", 10, 6),
			sniperSeries("300750", 10, 6),
		)

		symbol, err := selector.Select(decisionDate())
		suite.Require().NoError(err)
		suite.Equal(optional.Some("000002"), symbol)
	}
}

func (suite *SniperSelectorTestSuite) TestFilters() {
	tests := []struct {
		name string
		info *StockInfo
		base float64
	}{
		{
			name: "ST name",
			info: NewStockInfo(nil, []string{"000001"}),
			base: 10,
		},
		{
			name: "price below the floor",
			info: nil,
			base: 1.9 - 0.1*(sniperBars-1),
		},
		{
			name: "market cap too large",
			info: NewStockInfo(map[string]float64{"000001": 5e9}, nil),
			base: 10,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			selector := newTestSniper(tc.info, sniperSeries("000001", tc.base, 6))

			symbol, err := selector.Select(decisionDate())
			suite.Require().NoError(err)
			suite.True(symbol.IsNone())
		})
	}
}

func (suite *SniperSelectorTestSuite) TestSmallCapPasses() {
	info := NewStockInfo(map[string]float64{"000001": 1e9}, nil)
	selector := newTestSniper(info, sniperSeries("000001", 10, 6))

	symbol, err := selector.Select(decisionDate())
	suite.Require().NoError(err)
	suite.Equal(optional.Some("000001"), symbol)
}

func (suite *SniperSelectorTestSuite) TestShortHistory() {
	bars := sniperSeries("000001", 10, 6)
	selector := newTestSniper(nil, bars[len(bars)-29:])

	symbol, err := selector.Select(decisionDate())
	suite.Require().NoError(err)
	suite.True(symbol.IsNone())
}

func (suite *SniperSelectorTestSuite) TestWithoutFlowData() {
	bars := sniperSeries("000001", 10, 6)
	for i := range bars {
		bars[i].OutVol = optional.None[float64]()
		bars[i].InVol = optional.None[float64]()
	}

	selector := newTestSniper(nil, bars)

	symbol, err := selector.Select(decisionDate())
	suite.Require().NoError(err)
	suite.True(symbol.IsNone())
}

func (suite *SniperSelectorTestSuite) TestGeneratedDataNeverErrors() {
	generator := mocks.NewDataGenerator(7)
	config := mocks.DefaultConfig()
	bars := generator.GenerateMultiSymbol([]string{"000001", "000002", "600000"}, config)

	series := datasource.NewSeriesCache(datasource.NewInMemoryDataSource(bars))
	selector := NewSniperSelector(DefaultSniperConfig(), series, nil, nil)

	for _, date := range types.CalendarDays(config.StartDate.AddDate(0, 2, 0), config.StartDate.AddDate(0, 4, 0)) {
		_, err := selector.Select(date)
		suite.Require().NoError(err)
	}
}

func (suite *SniperSelectorTestSuite) TestCancelledContext() {
	selector := newTestSniper(nil, sniperSeries("000001", 10, 6))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := selector.SelectContext(ctx, decisionDate())
	suite.Error(err)
}

func (suite *SniperSelectorTestSuite) TestSignalRules() {
	base := sniperSignal{
		open: 10, close: 11,
		volume: 2000, volumeMA20: 1000,
		ma20: 10.5, ma20Prev: 10.4,
		zdp: -6, mazdp: -8,
		zdpPrev: -9, mazdpPrev: -8,
		j: 20, j1: 10, j2: 15,
	}

	tests := []struct {
		name   string
		modify func(s *sniperSignal)
		buy    bool
	}{
		{name: "cross with J rising", modify: func(s *sniperSignal) {}, buy: true},
		{name: "no uptrend", modify: func(s *sniperSignal) { s.close = 9 }, buy: false},
		{name: "flat volume", modify: func(s *sniperSignal) { s.volume = 1000 }, buy: false},
		{name: "ZDP above threshold", modify: func(s *sniperSignal) { s.zdp = -3; s.mazdp = -5 }, buy: false},
		{name: "ZDP below its average", modify: func(s *sniperSignal) { s.mazdp = -5 }, buy: false},
		{
			name:   "rising without cross needs J turn",
			modify: func(s *sniperSignal) { s.zdpPrev = -7; s.j2 = 5 },
			buy:    false,
		},
		{
			name:   "rising without cross with J turn",
			modify: func(s *sniperSignal) { s.zdpPrev = -7 },
			buy:    true,
		},
		{
			name:   "J turn above 30",
			modify: func(s *sniperSignal) { s.zdpPrev = -7; s.j1 = 31; s.j = 40; s.j2 = 35 },
			buy:    false,
		},
		{name: "cross with J falling", modify: func(s *sniperSignal) { s.j = 5 }, buy: false},
		{name: "missing ZDP", modify: func(s *sniperSignal) { s.zdp = math.NaN() }, buy: false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal := base
			tc.modify(&signal)
			suite.Equal(tc.buy, signal.buy(-4))
		})
	}
}

func (suite *SniperSelectorTestSuite) TestConfigValidate() {
	suite.NoError(DefaultSniperConfig().Validate())

	config := DefaultSniperConfig()
	config.HistoryWindow = config.MinHistory - 1
	suite.True(errors.HasCode(config.Validate(), errors.ErrCodeStrategyConfigError))

	config = DefaultSniperConfig()
	config.Workers = -1
	suite.Error(config.Validate())
}
