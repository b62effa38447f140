package strategy

import (
	"fmt"

	"github.com/JZJJake/AkBack/internal/indicator"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/utils"
	"github.com/moznion/go-optional"
)

type SMACrossoverConfig struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period" validate:"gt=0" jsonschema:"title=Fast Period,description=Bars in the fast moving average,default=5"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period" validate:"gtfield=FastPeriod" jsonschema:"title=Slow Period,description=Bars in the slow moving average,default=20"`
}

func DefaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{FastPeriod: 5, SlowPeriod: 20}
}

// SMACrossover buys with all cash when the fast average crosses above the slow
// one and sells everything on the opposite cross.
type SMACrossover struct {
	config SMACrossoverConfig
	closes []float64
}

func NewSMACrossover(config SMACrossoverConfig) (*SMACrossover, error) {
	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}

	return &SMACrossover{config: config}, nil
}

func (s *SMACrossover) Name() string {
	return fmt.Sprintf("sma_crossover_%d_%d", s.config.FastPeriod, s.config.SlowPeriod)
}

// OnBar implements engine.Strategy.
func (s *SMACrossover) OnBar(bar types.MarketData) (optional.Option[types.Order], error) {
	s.closes = append(s.closes, bar.Close)

	// only the last slow+1 closes matter
	if keep := s.config.SlowPeriod + 1; len(s.closes) > keep {
		s.closes = s.closes[len(s.closes)-keep:]
	}

	if len(s.closes) <= s.config.SlowPeriod {
		return optional.None[types.Order](), nil
	}

	fast := indicator.SMA(s.closes, s.config.FastPeriod)
	slow := indicator.SMA(s.closes, s.config.SlowPeriod)

	fastNow, fastPrev := indicator.Last(fast, 0), indicator.Last(fast, 1)
	slowNow, slowPrev := indicator.Last(slow, 0), indicator.Last(slow, 1)

	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		return optional.Some(types.BuyFraction(1.0).WithReason(types.OrderReasonStrategy, "golden cross")), nil
	case fastPrev >= slowPrev && fastNow < slowNow:
		return optional.Some(types.SellAll().WithReason(types.OrderReasonStrategy, "death cross")), nil
	default:
		return optional.None[types.Order](), nil
	}
}
