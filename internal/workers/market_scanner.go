package workers

import (
	"context"
	"time"

	"github.com/dotaedge/esport-signal/internal/core/state"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// MarketScanner periodically refreshes the active-market map from the
// quote provider. On a failed scan the previous set stays intact.
type MarketScanner struct {
	client   MarketSource
	markets  *state.ActiveMarkets
	interval time.Duration
}

func NewMarketScanner(client MarketSource, markets *state.ActiveMarkets, interval time.Duration) *MarketScanner {
	return &MarketScanner{
		client:   client,
		markets:  markets,
		interval: interval,
	}
}

// Run scans once immediately, then on every tick until ctx is done.
// Missed ticks coalesce; only one scan runs at a time.
func (w *MarketScanner) Run(ctx context.Context) error {
	telemetry.Infof("Market scanner started (interval: %s)", w.interval)

	w.scan(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *MarketScanner) scan(ctx context.Context) {
	telemetry.Infof("Scanning Polymarket for Dota 2 markets...")
	telemetry.Metrics.MarketScans.Inc()

	markets, err := w.client.FetchDota2Markets(ctx)
	if err != nil {
		telemetry.Metrics.MarketScanErrors.Inc()
		telemetry.Errorf("Failed to scan markets: %v", err)
		telemetry.Warnf("Will retry on next interval")
		return
	}

	for _, m := range markets {
		telemetry.Infof("Found market: %s - %s vs %s (liquidity: $%.2f)",
			m.ConditionID, m.TeamA, m.TeamB, m.Liquidity)
	}

	w.markets.Replace(markets)
	telemetry.Infof("Market scan complete: %d active markets", len(markets))
}
