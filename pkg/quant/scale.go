package quant

import "math"

// Parameters in the simulation are tuned for one reference tick. dt is the
// elapsed simulated time expressed in reference ticks.

// ScaleLinear scales a per-reference-tick amount to dt.
func ScaleLinear(v, dt float64) float64 {
	return v * dt
}

// ScaleDecay scales a per-reference-tick retention factor to dt.
func ScaleDecay(decay, dt float64) float64 {
	if dt <= 0 {
		return 1
	}
	return math.Pow(decay, dt)
}

// ScaleProb scales a per-reference-tick probability to dt so that two
// consecutive intervals a and b compose to the probability of a+b.
func ScaleProb(p, dt float64) float64 {
	if p <= 0 || dt <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	return 1 - math.Pow(1-p, dt)
}
