package process

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dotaedge/esport-signal/internal/adapters/outbound/discord"
	"github.com/dotaedge/esport-signal/internal/adapters/outbound/opendota"
	"github.com/dotaedge/esport-signal/internal/adapters/outbound/polymarket"
	"github.com/dotaedge/esport-signal/internal/config"
	"github.com/dotaedge/esport-signal/internal/core/matching"
	"github.com/dotaedge/esport-signal/internal/core/state"
	"github.com/dotaedge/esport-signal/internal/core/strategy"
	"github.com/dotaedge/esport-signal/internal/db"
	"github.com/dotaedge/esport-signal/internal/fanout"
	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
	"github.com/dotaedge/esport-signal/internal/workers"
)

// updateChanCap bounds the fetcher->processor channel. When it fills,
// the fetcher blocks until the processor catches up.
const updateChanCap = 100

// Run boots the signal pipeline: market scanner, live fetcher, and
// signal processor over shared state, plus the optional fanout server.
// Blocks until SIGINT/SIGTERM or until a worker fails.
func Run() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting esport-signal")

	// ── Signal store ───────────────────────────────────────────
	store, err := db.OpenSignalStore(cfg.DatabaseURL)
	if err != nil {
		telemetry.Errorf("Failed to open signal store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Team resolver ──────────────────────────────────────────
	resolver, err := matching.LoadResolver(cfg.TeamAliasesPath)
	if err != nil {
		telemetry.Errorf("Failed to load team aliases: %v", err)
		os.Exit(1)
	}

	// ── Model weights ──────────────────────────────────────────
	weights, err := config.LoadModelWeights(cfg.ModelWeightsPath)
	if err != nil {
		telemetry.Errorf("Failed to load model weights: %v", err)
		os.Exit(1)
	}
	evaluator := strategy.NewEvaluator(weights)

	// ── Clients & shared state ─────────────────────────────────
	polyClient := polymarket.NewClient(cfg.PolymarketAPIURL)
	dotaClient := opendota.NewClient()

	markets := state.NewActiveMarkets()
	cache := state.NewLiveMatchCache()
	updates := make(chan models.MatchUpdate, updateChanCap)

	// ── Fanout (optional) ──────────────────────────────────────
	var publisher workers.SignalPublisher
	var fanoutServer *fanout.Server
	if cfg.FanoutAddr != "" {
		fanoutServer = fanout.NewServer()
		publisher = fanoutServer
	}

	// ── Discord alerts (optional) ──────────────────────────────
	var notifier workers.SignalNotifier
	if cfg.DiscordWebhookURL != "" {
		notifier = discord.NewNotifier(cfg.DiscordWebhookURL)
		telemetry.Infof("Discord alerts enabled")
	}

	// ── Workers ────────────────────────────────────────────────
	scanner := workers.NewMarketScanner(polyClient, markets, cfg.ScanInterval)
	fetcher := workers.NewLiveFetcher(dotaClient, markets, cache, resolver, updates, cfg.PollInterval)
	processor := workers.NewSignalProcessor(markets, evaluator, store, publisher, notifier, updates)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scanner.Run(gctx) })
	g.Go(func() error { return fetcher.Run(gctx) })
	g.Go(func() error { return processor.Run(gctx) })
	if fanoutServer != nil {
		g.Go(func() error { return fanoutServer.Run(gctx, cfg.FanoutAddr) })
	}

	if err := g.Wait(); err != nil {
		telemetry.Errorf("Pipeline failed: %v", err)
		os.Exit(1)
	}

	telemetry.Infof("Shutdown complete  scans=%d  polls=%d  signals=%d  dropped=%d",
		telemetry.Metrics.MarketScans.Value(),
		telemetry.Metrics.LivePolls.Value(),
		telemetry.Metrics.SignalsStored.Value(),
		telemetry.Metrics.DroppedUpdates.Value(),
	)
}
