package systems

import "math"

// Clamp functions for common value ranges

// clamp clamps v between minVal and maxVal.
func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps v to the [0, 1] range.
func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// finite maps NaN and infinities to zero so a bad tick cannot poison state.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Interpolation functions

// lerp linearly interpolates from a to b by t without clamping t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// moveTowards moves current toward target by at most maxDelta.
func moveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	return current + math.Copysign(maxDelta, target-current)
}

// sign returns 1 for v >= 0 and -1 otherwise, matching the engine's convention
// where zero counts as positive.
func sign(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}
