// Package pricing implements the closed-form option pricing model and the
// implied-volatility inversion built on it. Everything here is pure: no I/O,
// no clocks, explicit parameters only.
package pricing

import "math"

// Sign conventions for the pricing model.
const (
	SignCall = 1.0
	SignPut  = -1.0
)

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// Price returns the theoretical option premium under the one-factor
// Black-Scholes model with a continuous dividend yield.
//
//	spot   — underlying price
//	strike — contract strike
//	t      — time to expiry in years
//	rate   — annualized risk-free rate
//	div    — annualized dividend yield
//	vol    — annualized volatility
//	sign   — SignCall (+1) or SignPut (-1)
//
// At or past expiry (t <= 0) the premium collapses to intrinsic value.
func Price(spot, strike, t, rate, div, vol, sign float64) float64 {
	if t <= 0 {
		return math.Max(sign*(spot-strike), 0)
	}
	if vol <= 0 {
		// Degenerate diffusion: discounted intrinsic on the forward
		fwd := spot * math.Exp((rate-div)*t)
		return math.Exp(-rate*t) * math.Max(sign*(fwd-strike), 0)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (rate-div+0.5*vol*vol)*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	return sign * (spot*math.Exp(-div*t)*normCDF(sign*d1) -
		strike*math.Exp(-rate*t)*normCDF(sign*d2))
}
