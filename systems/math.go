package systems

import "math"

// Clamp functions for common value ranges

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps awareness levels and probabilities to [0, 1].
func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

// clampUnit clamps perception to [-1, 1].
func clampUnit(v float64) float64 {
	return clampFloat(v, -1, 1)
}

// logistic maps perception onto a purchase multiplier in (0, 1).
func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
