package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/dotaedge/esport-signal/internal/adapters/outbound/opendota"
	"github.com/dotaedge/esport-signal/internal/config"
	"github.com/dotaedge/esport-signal/internal/db"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

const defaultTargetMatches = 1000

// fetch_historical backfills finished pro matches (with their gold/XP
// advantage series) into the historical_matches table for offline model
// calibration. Resumes from the oldest stored match on restart.
func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	target := defaultTargetMatches
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			telemetry.Errorf("Invalid target match count: %s", os.Args[1])
			os.Exit(1)
		}
		target = n
	}

	store, err := db.OpenHistoricalStore(cfg.DatabaseURL)
	if err != nil {
		telemetry.Errorf("Failed to open historical store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	existing, err := store.Count()
	if err != nil {
		telemetry.Errorf("Failed to count stored matches: %v", err)
		os.Exit(1)
	}

	cursor, err := store.MinMatchID()
	if err != nil {
		telemetry.Errorf("Failed to read resume cursor: %v", err)
		os.Exit(1)
	}
	if cursor > 0 {
		telemetry.Infof("Resuming backfill below match %d (%d already stored)", cursor, existing)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := opendota.NewClient()

	// Stay inside OpenDota's free-tier budget.
	limiter := rate.NewLimiter(rate.Every(1100*time.Millisecond), 1)

	telemetry.Infof("Backfilling %d pro matches...", target)

	stored := 0
	for stored < target {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		page, err := client.GetProMatches(ctx, cursor)
		if err != nil {
			telemetry.Errorf("Failed to fetch pro match page: %v", err)
			os.Exit(1)
		}
		if len(page) == 0 {
			telemetry.Warnf("No more pro matches available, stopping at %d", stored)
			break
		}

		for _, pm := range page {
			if stored >= target || ctx.Err() != nil {
				break
			}
			if cursor == 0 || pm.MatchID < cursor {
				cursor = pm.MatchID
			}

			// Only decided matches with both teams identified are
			// useful for calibration.
			if pm.RadiantWin == nil || pm.RadiantName == nil || pm.DireName == nil {
				continue
			}

			exists, err := store.MatchExists(pm.MatchID)
			if err != nil {
				telemetry.Errorf("Failed to check match %d: %v", pm.MatchID, err)
				os.Exit(1)
			}
			if exists {
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				break
			}

			details, err := client.GetMatchDetails(ctx, pm.MatchID)
			if err != nil {
				telemetry.Warnf("Skipping match %d: %v", pm.MatchID, err)
				continue
			}
			if details == nil {
				telemetry.Debugf("Match %d has no details, skipping", pm.MatchID)
				continue
			}

			inserted, err := store.InsertMatch(toHistorical(pm, details))
			if err != nil {
				telemetry.Errorf("Failed to store match %d: %v", pm.MatchID, err)
				os.Exit(1)
			}
			if !inserted {
				continue
			}

			stored++
			if stored%10 == 0 {
				telemetry.Infof("Progress: %d/%d matches stored", stored, target)
			}
		}

		if ctx.Err() != nil {
			telemetry.Warnf("Interrupted, stopping at %d", stored)
			break
		}
	}

	total, _ := store.Count()
	telemetry.Infof("Backfill complete: %d new matches stored (%d total)", stored, total)
}

func toHistorical(pm opendota.ProMatch, details *opendota.MatchDetails) *db.HistoricalMatch {
	m := &db.HistoricalMatch{
		MatchID:        pm.MatchID,
		RadiantTeam:    strOr(pm.RadiantName, ""),
		DireTeam:       strOr(pm.DireName, ""),
		RadiantWin:     boolOr(pm.RadiantWin, false),
		Duration:       i32Or(pm.Duration, 0),
		RadiantGoldAdv: encodeSeries(details.RadiantGoldAdv),
		RadiantXPAdv:   encodeSeries(details.RadiantXPAdv),
		StartTime:      i64Or(pm.StartTime, 0),
		LeagueName:     strOr(pm.LeagueName, ""),
		FetchedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	// The details endpoint is the source of truth where the listing
	// page disagrees.
	if details.RadiantWin != nil {
		m.RadiantWin = *details.RadiantWin
	}
	if details.Duration != nil {
		m.Duration = *details.Duration
	}
	if details.League != nil && details.League.Name != nil {
		m.LeagueName = *details.League.Name
	}
	return m
}

func encodeSeries(series []int32) string {
	if len(series) == 0 {
		return "[]"
	}
	data, err := json.Marshal(series)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func strOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func boolOr(p *bool, fallback bool) bool {
	if p != nil {
		return *p
	}
	return fallback
}

func i32Or(p *int32, fallback int32) int32 {
	if p != nil {
		return *p
	}
	return fallback
}

func i64Or(p *int64, fallback int64) int64 {
	if p != nil {
		return *p
	}
	return fallback
}
