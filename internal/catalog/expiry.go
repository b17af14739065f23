package catalog

import (
	"context"
	"sort"
	"time"

	apperrors "options-screener/internal/errors"
	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// Resolver picks the relevant contract series for an underlying out of the
// catalog snapshot.
type Resolver struct {
	cache *Cache

	// AllowExpiredFallback keeps the upstream behavior of returning the
	// latest expired series when every expiry has passed. Configurable
	// because it is unclear whether that behavior is intentional.
	AllowExpiredFallback bool

	now func() time.Time
}

// NewResolver creates an expiry resolver over the given catalog cache.
func NewResolver(cache *Cache, allowExpiredFallback bool) *Resolver {
	return &Resolver{
		cache:                cache,
		AllowExpiredFallback: allowExpiredFallback,
		now:                  time.Now,
	}
}

// ResolveExpiry returns the nearest non-expired expiry date for the
// underlying's option chain. When every series has expired it returns the
// latest available date as a degraded fallback (unless disabled), and
// ErrNoChain when the underlying has no option contracts at all.
func (r *Resolver) ResolveExpiry(ctx context.Context, underlying string) (time.Time, error) {
	instruments, err := r.cache.Instruments(ctx)
	if err != nil {
		return time.Time{}, err
	}

	chain := filterChain(instruments, underlying)
	if len(chain) == 0 {
		return time.Time{}, apperrors.NewDataError("expiry", underlying, "no matching option contracts", apperrors.ErrNoChain)
	}

	expiries := distinctExpiries(chain)

	today := utils.TradingDate(r.now())
	for _, e := range expiries {
		if !utils.TradingDate(e).Before(today) {
			return e, nil
		}
	}

	if r.AllowExpiredFallback {
		return expiries[len(expiries)-1], nil
	}
	return time.Time{}, apperrors.NewDataError("expiry", underlying, "all series expired", apperrors.ErrNoChain)
}

// Expiries returns the full sorted set of distinct expiry dates available
// for the underlying at catalog-read time.
func (r *Resolver) Expiries(ctx context.Context, underlying string) ([]time.Time, error) {
	instruments, err := r.cache.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	chain := filterChain(instruments, underlying)
	if len(chain) == 0 {
		return nil, apperrors.NewDataError("expiry", underlying, "no matching option contracts", apperrors.ErrNoChain)
	}

	return distinctExpiries(chain), nil
}

// distinctExpiries collects the sorted set of distinct expiry dates in a
// filtered chain.
func distinctExpiries(chain []models.Instrument) []time.Time {
	seen := make(map[time.Time]struct{})
	var expiries []time.Time
	for _, inst := range chain {
		if inst.Expiry.IsZero() {
			continue
		}
		day := utils.TradingDate(inst.Expiry)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		expiries = append(expiries, inst.Expiry)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries
}
