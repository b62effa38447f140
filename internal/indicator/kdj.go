package indicator

import "math"

const (
	DefaultKDJPeriod = 9
	// DefaultKDJAlpha is the smoothing of K and D, the same as SMA(x, 3, 1).
	DefaultKDJAlpha = 1.0 / 3.0
)

// KDJ is the stochastic oscillator in its A-share form.
type KDJ struct {
	K []float64
	D []float64
	J []float64
}

// NewKDJ computes KDJ over period bars. RSV is NaN while the window fills and
// whenever the window's high equals its low.
func NewKDJ(high, low, close []float64, period int, alpha float64) KDJ {
	lowest := RollingMin(low, period)
	highest := RollingMax(high, period)

	rsv := nanSlice(len(close))
	for i := range close {
		spread := highest[i] - lowest[i]
		if math.IsNaN(spread) || spread == 0 {
			continue
		}

		rsv[i] = (close[i] - lowest[i]) / spread * 100
	}

	k := EWM(rsv, alpha)
	d := EWM(k, alpha)

	j := nanSlice(len(close))
	for i := range j {
		j[i] = 3*k[i] - 2*d[i]
	}

	return KDJ{K: k, D: d, J: j}
}
