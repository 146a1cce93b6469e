package state

import (
	"sync"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// LiveMatchCache keeps the most recent observation per match_id.
// Entries are never pruned; a match enters the cache only when some
// active market resolved to it.
type LiveMatchCache struct {
	mu      sync.RWMutex
	matches map[int64]models.LiveMatchState
}

func NewLiveMatchCache() *LiveMatchCache {
	return &LiveMatchCache{
		matches: make(map[int64]models.LiveMatchState),
	}
}

func (c *LiveMatchCache) Get(matchID int64) (models.LiveMatchState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.matches[matchID]
	return s, ok
}

// Swap stores the new state and returns the previous one, if any.
func (c *LiveMatchCache) Swap(state models.LiveMatchState) (models.LiveMatchState, bool) {
	c.mu.Lock()
	prev, ok := c.matches[state.MatchID]
	c.matches[state.MatchID] = state
	size := len(c.matches)
	c.mu.Unlock()

	telemetry.Metrics.CachedMatches.Set(int64(size))
	return prev, ok
}

func (c *LiveMatchCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matches)
}
