package pricing

// Bisection bracket and iteration budget for the implied-volatility solve.
// Precision is bounded by the iteration count, not guaranteed exact: the
// bracket halves 80 times, far below any quote's tick size.
const (
	VolLo      = 1e-6
	VolHi      = 5.0
	Iterations = 80
)

// ImpliedVol inverts the pricing model by bisection, returning the
// volatility whose model price matches the observed premium.
//
// Returns 0 without solving when t <= 0 (expiry day at or after expiry).
// Never fails: at iteration exhaustion the bracket midpoint is the answer. A
// zero observed premium converges toward the low bracket bound, since zero
// premium implies minimal time value.
func ImpliedVol(observed, spot, strike, t, rate, div, sign float64) float64 {
	return ImpliedVolBracket(observed, spot, strike, t, rate, div, sign, VolLo, VolHi, Iterations)
}

// ImpliedVolBracket is ImpliedVol with an explicit bracket and iteration
// count.
func ImpliedVolBracket(observed, spot, strike, t, rate, div, sign, lo, hi float64, iterations int) float64 {
	if t <= 0 {
		return 0
	}

	for i := 0; i < iterations; i++ {
		mid := (lo + hi) / 2
		if Price(spot, strike, t, rate, div, mid, sign) < observed {
			lo = mid
		} else {
			hi = mid
		}
	}

	return (lo + hi) / 2
}
