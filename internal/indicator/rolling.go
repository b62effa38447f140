package indicator

import "math"

// Series functions work on whole columns, oldest value first. Positions without a
// value are NaN, and the output always has the length of the input.

// SMA returns the simple moving average over window. The first window-1 values,
// and any window containing NaN, are NaN.
func SMA(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}

		return sum / float64(len(w))
	})
}

// RollingMin returns the lowest value of each window.
func RollingMin(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		lowest := w[0]
		for _, v := range w[1:] {
			lowest = math.Min(lowest, v)
		}

		return lowest
	})
}

// RollingMax returns the highest value of each window.
func RollingMax(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		highest := w[0]
		for _, v := range w[1:] {
			highest = math.Max(highest, v)
		}

		return highest
	})
}

// EWM returns the exponentially weighted mean y[t] = alpha*x[t] + (1-alpha)*y[t-1],
// seeded with the first value that is not NaN. A NaN input repeats the previous mean.
func EWM(values []float64, alpha float64) []float64 {
	out := nanSlice(len(values))

	started := false
	mean := 0.0

	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case !started:
			mean = v
			started = true
		default:
			mean = alpha*v + (1-alpha)*mean
		}

		if started {
			out[i] = mean
		}
	}

	return out
}

// Last returns the value offset positions before the end, or NaN when out of range.
// Last(values, 0) is the newest value.
func Last(values []float64, offset int) float64 {
	i := len(values) - 1 - offset
	if i < 0 || i >= len(values) {
		return math.NaN()
	}

	return values[i]
}

func rolling(values []float64, window int, reduce func(w []float64) float64) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}

		out[i] = reduce(w)
	}

	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
