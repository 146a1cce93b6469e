package state

import (
	"sync"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// ActiveMarkets is a thread-safe map of condition_id -> market.
// The scanner replaces the whole set under the write lock, so readers
// always observe either the pre-scan or the post-scan set in full.
type ActiveMarkets struct {
	mu      sync.RWMutex
	markets map[string]models.PolymarketMarket
}

func NewActiveMarkets() *ActiveMarkets {
	return &ActiveMarkets{
		markets: make(map[string]models.PolymarketMarket),
	}
}

// Replace swaps in the result of a successful scan wholesale.
func (a *ActiveMarkets) Replace(markets []models.PolymarketMarket) {
	next := make(map[string]models.PolymarketMarket, len(markets))
	for _, m := range markets {
		next[m.ConditionID] = m
	}

	a.mu.Lock()
	a.markets = next
	a.mu.Unlock()

	telemetry.Metrics.ActiveMarkets.Set(int64(len(next)))
}

func (a *ActiveMarkets) Get(conditionID string) (models.PolymarketMarket, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.markets[conditionID]
	return m, ok
}

// All returns a snapshot slice. Safe to iterate without holding any lock.
func (a *ActiveMarkets) All() []models.PolymarketMarket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.PolymarketMarket, 0, len(a.markets))
	for _, m := range a.markets {
		out = append(out, m)
	}
	return out
}

func (a *ActiveMarkets) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.markets)
}
