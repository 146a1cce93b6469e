package workers

import (
	"context"
	"time"

	"github.com/dotaedge/esport-signal/internal/core/matching"
	"github.com/dotaedge/esport-signal/internal/core/state"
	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// LiveFetcher polls the live-match feed, pairs matches with active
// markets, and pushes state transitions onto the updates channel.
type LiveFetcher struct {
	client   LiveSource
	markets  *state.ActiveMarkets
	cache    *state.LiveMatchCache
	resolver *matching.Resolver
	updates  chan<- models.MatchUpdate
	interval time.Duration
}

func NewLiveFetcher(
	client LiveSource,
	markets *state.ActiveMarkets,
	cache *state.LiveMatchCache,
	resolver *matching.Resolver,
	updates chan<- models.MatchUpdate,
	interval time.Duration,
) *LiveFetcher {
	return &LiveFetcher{
		client:   client,
		markets:  markets,
		cache:    cache,
		resolver: resolver,
		updates:  updates,
		interval: interval,
	}
}

func (w *LiveFetcher) Run(ctx context.Context) error {
	telemetry.Infof("Live fetcher started (interval: %s)", w.interval)

	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *LiveFetcher) poll(ctx context.Context) {
	// Nothing to correlate against; save the API call.
	if w.markets.Count() == 0 {
		telemetry.Debugf("No active markets, skipping live poll")
		return
	}

	telemetry.Metrics.LivePolls.Inc()

	liveMatches, err := w.client.FetchLiveMatches(ctx)
	if err != nil {
		telemetry.Metrics.LivePollErrors.Inc()
		telemetry.Errorf("Failed to fetch live matches: %v", err)
		return
	}
	if len(liveMatches) == 0 {
		telemetry.Debugf("No live pro matches right now")
		return
	}

	// Iterate a snapshot so a concurrent scan cannot change the set
	// mid-pass.
	for _, market := range w.markets.All() {
		result := w.resolver.MatchMarketToLive(market, liveMatches)
		if result == nil {
			continue
		}
		telemetry.Metrics.MatchesMatched.Inc()

		prev, had := w.cache.Swap(result.MatchState)

		update := models.MatchUpdate{
			MarketConditionID: market.ConditionID,
			State:             result.MatchState,
		}
		if had {
			prevCopy := prev
			update.PreviousState = &prevCopy
		}

		// The cache already holds the new state, so this transition's
		// baseline is gone; the send must wait for capacity rather than
		// drop. Only shutdown interrupts it.
		select {
		case w.updates <- update:
			telemetry.Metrics.UpdatesEnqueued.Inc()
		case <-ctx.Done():
			return
		}
	}
}
