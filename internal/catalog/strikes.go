package catalog

import (
	"context"
	"math"
	"sort"
	"time"

	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// Selector computes the ATM-centered strike window for an underlying's
// resolved expiry.
type Selector struct {
	cache *Cache
}

// NewSelector creates a strike window selector over the given catalog cache.
func NewSelector(cache *Cache) *Selector {
	return &Selector{cache: cache}
}

// SelectStrikes returns up to 2·width+1 distinct strikes centered on the ATM
// strike, truncated at either boundary of the available range. An empty
// result means the underlying has no chain at that expiry and the caller
// treats it as a no-chain outcome, not an error.
func (s *Selector) SelectStrikes(ctx context.Context, underlying string, expiry time.Time, spot float64, width int) ([]float64, error) {
	chain, err := s.Contracts(ctx, underlying, expiry)
	if err != nil {
		return nil, err
	}

	strikes := distinctStrikes(chain)
	if len(strikes) == 0 {
		return nil, nil
	}

	return Window(strikes, spot, width), nil
}

// Contracts returns the option contracts for (underlying, expiry).
func (s *Selector) Contracts(ctx context.Context, underlying string, expiry time.Time) ([]models.Instrument, error) {
	instruments, err := s.cache.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	var chain []models.Instrument
	for _, inst := range filterChain(instruments, underlying) {
		if utils.SameTradingDate(inst.Expiry, expiry) {
			chain = append(chain, inst)
		}
	}
	return chain, nil
}

// Window slices a sorted strike list to the ATM-centered window
// [max(0, i-width), i+width] inclusive. The input must be sorted ascending.
func Window(strikes []float64, spot float64, width int) []float64 {
	if len(strikes) == 0 {
		return nil
	}

	i := ATMIndex(strikes, spot)

	lo := i - width
	if lo < 0 {
		lo = 0
	}
	hi := i + width
	if hi > len(strikes)-1 {
		hi = len(strikes) - 1
	}

	out := make([]float64, hi-lo+1)
	copy(out, strikes[lo:hi+1])
	return out
}

// ATMIndex returns the index of the strike minimizing |strike - spot|. Ties
// break to the lower strike: the scan keeps the first minimum it sees.
func ATMIndex(strikes []float64, spot float64) int {
	best := 0
	bestDist := math.Abs(strikes[0] - spot)
	for i := 1; i < len(strikes); i++ {
		d := math.Abs(strikes[i] - spot)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// FindContract locates the instrument for a (strike, kind) leg in a filtered
// chain. The second return is false when the leg is not listed.
func FindContract(chain []models.Instrument, strike float64, kind models.OptionKind) (models.Instrument, bool) {
	for _, inst := range chain {
		if inst.Kind == string(kind) && inst.Strike == strike {
			return inst, true
		}
	}
	return models.Instrument{}, false
}

func distinctStrikes(chain []models.Instrument) []float64 {
	seen := make(map[float64]struct{})
	var strikes []float64
	for _, inst := range chain {
		if inst.Strike <= 0 {
			continue
		}
		if _, ok := seen[inst.Strike]; ok {
			continue
		}
		seen[inst.Strike] = struct{}{}
		strikes = append(strikes, inst.Strike)
	}
	sort.Float64s(strikes)
	return strikes
}
