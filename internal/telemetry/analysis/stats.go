package analysis

// mean returns the arithmetic mean of vs, 0 for an empty slice.
func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// meanVariance returns the mean and population variance of vs.
func meanVariance(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	m := mean(vs)
	variance := 0.0
	for _, v := range vs {
		d := v - m
		variance += d * d
	}
	return m, variance / float64(len(vs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
