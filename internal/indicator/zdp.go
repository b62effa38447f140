package indicator

import "math"

const (
	// DefaultFlowScale turns the flow ratio into points. The threshold the sniper
	// selector compares against (-4) only makes sense on this scale.
	DefaultFlowScale = 100.0
	DefaultZDPWindow = 3
	DefaultMAZDP     = 6
)

// RawZDP returns (outvol - invol) / volume * scale per bar. Bars without flow
// data or without volume are NaN.
func RawZDP(outVol, inVol, volume []float64, scale float64) []float64 {
	out := nanSlice(len(volume))

	for i := range volume {
		if i >= len(outVol) || i >= len(inVol) || volume[i] == 0 {
			continue
		}

		raw := (outVol[i] - inVol[i]) / volume[i] * scale
		if !math.IsInf(raw, 0) {
			out[i] = raw
		}
	}

	return out
}

// ZDP is the flow divergence line: the window-bar average of RawZDP.
func ZDP(outVol, inVol, volume []float64, scale float64, window int) []float64 {
	return SMA(RawZDP(outVol, inVol, volume, scale), window)
}
