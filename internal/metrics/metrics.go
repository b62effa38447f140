package metrics

import (
	"math"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

const (
	// TradingDaysPerYear annualizes daily Sharpe ratios.
	TradingDaysPerYear = 252.0
	// RiskFreeRate is the yearly rate subtracted from daily returns.
	RiskFreeRate = 0.03
)

// Calculate derives the performance of a run from its curve and trade log.
// An empty curve gives zero stats.
func Calculate(result types.BacktestResult) types.TradeStats {
	s := types.TradeStats{
		TradingDays: len(result.Curve),
		TradeResult: TradeResult(result.Trades),
		Fees:        Fees(result.Trades),
	}

	if result.IsEmpty() {
		return s
	}

	s.StartDate = result.Curve[0].Date
	s.EndDate = result.Curve[len(result.Curve)-1].Date
	s.Returns = Returns(result.Curve)

	return s
}

// Returns computes the return, drawdown and Sharpe figures of a curve.
func Returns(curve []types.Snapshot) types.TradeReturns {
	if len(curve) == 0 {
		return types.TradeReturns{}
	}

	assets := make([]float64, len(curve))
	for i, snapshot := range curve {
		assets[i] = snapshot.TotalAssets.InexactFloat64()
	}

	initial := assets[0]
	final := assets[len(assets)-1]

	r := types.TradeReturns{
		InitialAssets:  initial,
		FinalAssets:    final,
		MaxDrawdownPct: MaxDrawdown(assets) * 100,
		SharpeRatio:    Sharpe(DailyReturns(assets)),
	}

	if initial <= 0 {
		return r
	}

	r.TotalReturnPct = (final - initial) / initial * 100

	days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	if days > 0 {
		r.CAGRPct = (math.Pow(final/initial, 365.0/days) - 1) * 100
	}

	return r
}

// DailyReturns returns the day-over-day change of assets. The first day counts as 0.
func DailyReturns(assets []float64) []float64 {
	returns := make([]float64, len(assets))

	for i := 1; i < len(assets); i++ {
		if assets[i-1] != 0 {
			returns[i] = assets[i]/assets[i-1] - 1
		}
	}

	return returns
}

// MaxDrawdown returns the deepest fall from a running peak as a fraction, zero or negative.
func MaxDrawdown(assets []float64) float64 {
	var (
		peak  float64
		worst float64
	)

	for i, v := range assets {
		if i == 0 || v > peak {
			peak = v
		}

		if peak > 0 {
			worst = math.Min(worst, (v-peak)/peak)
		}
	}

	return worst
}

// Sharpe annualizes the mean daily excess return over the sample deviation of returns.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	std, err := stats.StandardDeviationSample(returns)
	if err != nil || std <= 0 || math.IsNaN(std) {
		return 0
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}

	excess := mean - RiskFreeRate/TradingDaysPerYear

	return excess / std * math.Sqrt(TradingDaysPerYear)
}

// TradeResult pairs buys with the next sell. Buys accumulate cost until a sell
// closes the round trip; a sell with nothing bought before it is not counted.
func TradeResult(trades []types.Fill) types.TradeResult {
	r := types.TradeResult{NumberOfTrades: len(trades)}

	cost := decimal.Zero

	for _, fill := range trades {
		switch fill.Side {
		case types.PurchaseTypeBuy:
			cost = cost.Add(fill.CashDelta.Neg())
		case types.PurchaseTypeSell:
			if !cost.IsPositive() {
				continue
			}

			r.NumberOfRoundTrips++

			if fill.CashDelta.GreaterThan(cost) {
				r.NumberOfWinningTrades++
			} else {
				r.NumberOfLosingTrades++
			}

			cost = decimal.Zero
		}
	}

	if r.NumberOfRoundTrips > 0 {
		r.WinRatePct = float64(r.NumberOfWinningTrades) / float64(r.NumberOfRoundTrips) * 100
	}

	return r
}

// Fees sums commission and stamp duty over the trade log.
func Fees(trades []types.Fill) types.TradeFees {
	commission := decimal.Zero
	stampDuty := decimal.Zero

	for _, fill := range trades {
		commission = commission.Add(fill.Commission)
		stampDuty = stampDuty.Add(fill.StampDuty)
	}

	return types.TradeFees{
		TotalCommission: commission.InexactFloat64(),
		TotalStampDuty:  stampDuty.InexactFloat64(),
		TotalFees:       commission.Add(stampDuty).InexactFloat64(),
	}
}
