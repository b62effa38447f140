package strategy

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/indicator"
	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/JZJJake/AkBack/pkg/utils"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const SniperSelectorName = "sniper"

// SniperConfig holds the thresholds of the sniper selector.
type SniperConfig struct {
	FlowScale     float64 `yaml:"flow_scale" json:"flow_scale" validate:"gt=0" jsonschema:"title=Flow Scale,description=Multiplier applied to the active buy/sell volume ratio,default=100"`
	MinPrice      float64 `yaml:"min_price" json:"min_price" validate:"gte=0" jsonschema:"title=Minimum Price,description=Names closing at or below this price are skipped,default=2"`
	MaxMarketCap  float64 `yaml:"max_market_cap" json:"max_market_cap" validate:"gt=0" jsonschema:"title=Maximum Market Cap,description=Names valued above this many CNY are skipped,default=35000000000"`
	ZDPThreshold  float64 `yaml:"zdp_threshold" json:"zdp_threshold" jsonschema:"title=ZDP Threshold,description=The flow line must be below this value,default=-4"`
	MinHistory    int     `yaml:"min_history" json:"min_history" validate:"gte=4" jsonschema:"title=Minimum History,description=Bars required before the decision date,default=30"`
	HistoryWindow int     `yaml:"history_window" json:"history_window" validate:"gtefield=MinHistory" jsonschema:"title=History Window,description=Bars the indicators are computed on,default=40"`
	Workers       int     `yaml:"workers" json:"workers" validate:"gte=0" jsonschema:"title=Workers,description=Symbols evaluated in parallel; 0 uses every CPU"`
}

func DefaultSniperConfig() SniperConfig {
	return SniperConfig{
		FlowScale:     indicator.DefaultFlowScale,
		MinPrice:      2.0,
		MaxMarketCap:  35e9,
		ZDPThreshold:  -4,
		MinHistory:    30,
		HistoryWindow: 40,
		Workers:       0,
	}
}

// Validate checks the config ranges.
func (c SniperConfig) Validate() error {
	return utils.ValidateConfig(c)
}

// SniperSelector picks, for each date, the symbol whose flow divergence line
// turned up from deeply negative on the previous trading day while price and
// volume confirm an uptrend. Only bars dated strictly before the decision date
// are read. No bar is required on the decision date itself, so a suspended
// symbol can be picked; the portfolio runner then skips the buy.
type SniperSelector struct {
	config SniperConfig
	series *datasource.SeriesCache
	info   *StockInfo
	log    *logger.Logger
}

// candidate is a symbol that passed every rule on a given date.
type candidate struct {
	symbol string
	zdp    float64
}

func NewSniperSelector(config SniperConfig, series *datasource.SeriesCache, info *StockInfo, log *logger.Logger) *SniperSelector {
	if info == nil {
		info = NewStockInfo(nil, nil)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &SniperSelector{
		config: config,
		series: series,
		info:   info,
		log:    log,
	}
}

func (s *SniperSelector) Name() string {
	return SniperSelectorName
}

// Select implements engine.Selector.
func (s *SniperSelector) Select(date time.Time) (optional.Option[string], error) {
	return s.SelectContext(context.Background(), date)
}

// SelectContext scans every symbol of the series cache and returns the
// candidate with the highest flow line. Ties go to the first symbol in sorted
// order.
func (s *SniperSelector) SelectContext(ctx context.Context, date time.Time) (optional.Option[string], error) {
	symbols, err := s.series.Symbols()
	if err != nil {
		return optional.None[string](), errors.Wrap(errors.ErrCodeSelectorFailed, "failed to list symbols", err)
	}

	sort.Strings(symbols)

	results := make([]optional.Option[candidate], len(symbols))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers())

	for i, symbol := range symbols {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := s.evaluate(symbol, date)
			if errors.IsInsufficientDataError(err) {
				s.log.Debug("Not enough history", zap.String("symbol", symbol), zap.Error(err))

				return nil
			}

			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return optional.None[string](), errors.Wrapf(errors.ErrCodeSelectorFailed, err, "sniper scan failed on %s", date.Format(time.DateOnly))
	}

	var best optional.Option[candidate]

	for _, result := range results {
		if result.IsNone() {
			continue
		}

		if best.IsNone() || result.Unwrap().zdp > best.Unwrap().zdp {
			best = result
		}
	}

	if best.IsNone() {
		return optional.None[string](), nil
	}

	s.log.Debug("Sniper pick",
		zap.String("date", date.Format(time.DateOnly)),
		zap.String("symbol", best.Unwrap().symbol),
		zap.Float64("zdp", best.Unwrap().zdp),
	)

	return optional.Some(best.Unwrap().symbol), nil
}

func (s *SniperSelector) workers() int {
	if s.config.Workers > 0 {
		return s.config.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// evaluate applies the filters and the signal to one symbol. None means the
// symbol is not a candidate on date.
func (s *SniperSelector) evaluate(symbol string, date time.Time) (optional.Option[candidate], error) {
	if s.info.IsST(symbol) {
		return optional.None[candidate](), nil
	}

	history, err := s.series.History(symbol, date, s.config.HistoryWindow)
	if err != nil {
		return optional.None[candidate](), err
	}

	if len(history) < s.config.MinHistory {
		return optional.None[candidate](), errors.NewInsufficientDataErrorf(s.config.MinHistory, len(history), symbol,
			"%s has %d bars before %s, need %d", symbol, len(history), date.Format(time.DateOnly), s.config.MinHistory)
	}

	last := history[len(history)-1]
	if last.Close <= s.config.MinPrice {
		return optional.None[candidate](), nil
	}

	if s.info.MarketCap(symbol, last.Close) > s.config.MaxMarketCap {
		return optional.None[candidate](), nil
	}

	signal := newSniperSignal(history, s.config.FlowScale)
	if !signal.buy(s.config.ZDPThreshold) {
		return optional.None[candidate](), nil
	}

	return optional.Some(candidate{symbol: symbol, zdp: signal.zdp}), nil
}

// sniperSignal holds the indicator values of the newest bar (T-1) and the
// ones before it.
type sniperSignal struct {
	open, close        float64
	volume, volumeMA20 float64
	ma20, ma20Prev     float64
	zdp, mazdp         float64
	zdpPrev, mazdpPrev float64
	j, j1, j2          float64
}

func newSniperSignal(history []types.MarketData, flowScale float64) sniperSignal {
	n := len(history)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	outVols := make([]float64, n)
	inVols := make([]float64, n)

	for i, bar := range history {
		opens[i] = bar.Open
		highs[i] = bar.High
		lows[i] = bar.Low
		closes[i] = bar.Close
		volumes[i] = bar.Volume
		outVols[i] = bar.OutVol.TakeOr(math.NaN())
		inVols[i] = bar.InVol.TakeOr(math.NaN())
	}

	zdp := indicator.ZDP(outVols, inVols, volumes, flowScale, indicator.DefaultZDPWindow)
	mazdp := indicator.SMA(zdp, indicator.DefaultMAZDP)
	ma20 := indicator.SMA(closes, 20)
	volumeMA20 := indicator.SMA(volumes, 20)
	kdj := indicator.NewKDJ(highs, lows, closes, indicator.DefaultKDJPeriod, indicator.DefaultKDJAlpha)

	return sniperSignal{
		open:       opens[n-1],
		close:      closes[n-1],
		volume:     volumes[n-1],
		volumeMA20: indicator.Last(volumeMA20, 0),
		ma20:       indicator.Last(ma20, 0),
		ma20Prev:   indicator.Last(ma20, 1),
		zdp:        indicator.Last(zdp, 0),
		mazdp:      indicator.Last(mazdp, 0),
		zdpPrev:    indicator.Last(zdp, 1),
		mazdpPrev:  indicator.Last(mazdp, 1),
		j:          indicator.Last(kdj.J, 0),
		j1:         indicator.Last(kdj.J, 1),
		j2:         indicator.Last(kdj.J, 2),
	}
}

// uptrend: a rising close above a rising MA20 on above-average volume.
func (s sniperSignal) uptrend() bool {
	return s.close > s.open &&
		s.ma20 > s.ma20Prev &&
		s.close > s.ma20 &&
		s.volume > s.volumeMA20
}

// NaN compares false everywhere below, so missing flow data never signals.
func (s sniperSignal) buy(threshold float64) bool {
	if math.IsNaN(s.zdp) || math.IsNaN(s.mazdp) || !s.uptrend() || s.zdp >= threshold {
		return false
	}

	rising := s.zdp > s.mazdp && s.zdp < 0
	crossed := rising && s.zdpPrev < s.mazdpPrev

	turning := s.j1 <= 30 && s.j > s.j1 && s.j1 < s.j2

	return (rising && turning) || (crossed && s.j > s.j1)
}
