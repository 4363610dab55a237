// Package rates defines the currency conversion collaborator the ledger
// engine reads from. The engine only ever asks for a factor as of a point
// in time; where the factor comes from (a table, a cache, an external
// feed) is the provider's concern.
package rates

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable is returned when no conversion factor exists for a
// currency pair at the requested time. The engine excludes the affected
// payment and degrades the summary rather than failing the whole read.
var ErrRateUnavailable = errors.New("conversion rate unavailable")

// Provider returns the factor that converts an amount in `from` into `to`
// as of the given time. Implementations must return the historical factor
// for asOf, not the current one, so past summaries stay stable.
type Provider interface {
	Factor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error)
}

// StaticProvider serves factors from a fixed in-memory table. Used in
// development and tests; production wires the repository-backed provider
// behind the redis rate cache.
type StaticProvider struct {
	mu      sync.RWMutex
	factors map[string]decimal.Decimal
}

// NewStaticProvider creates an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{factors: make(map[string]decimal.Decimal)}
}

// Set registers a factor for a currency pair. Pairs are directional;
// register the inverse explicitly if both directions are needed.
func (p *StaticProvider) Set(from, to string, factor decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factors[pairKey(from, to)] = factor
}

// Factor implements Provider. Same-currency conversions always succeed
// with a factor of one.
func (p *StaticProvider) Factor(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	factor, ok := p.factors[pairKey(from, to)]
	if !ok {
		return decimal.Decimal{}, ErrRateUnavailable
	}
	return factor, nil
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + ":" + strings.ToUpper(to)
}

var _ Provider = (*StaticProvider)(nil)
