package matching

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// TeamAliases is the on-disk alias table format.
type TeamAliases struct {
	Teams []TeamAliasEntry `json:"teams"`
}

type TeamAliasEntry struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
}

// MatchResult pairs a market with the live match it was resolved to.
type MatchResult struct {
	Market     models.PolymarketMarket
	MatchState models.LiveMatchState

	// MarketTeamAIsRadiant is true when the market's team A is the
	// radiant side of the matched game.
	MarketTeamAIsRadiant bool
}

// Resolver maps team names between the Polymarket and live-data name
// spaces. Immutable after construction apart from AddAlias.
type Resolver struct {
	aliases map[string]string // normalized alias -> normalized canonical
}

func NewResolver() *Resolver {
	return &Resolver{aliases: make(map[string]string)}
}

// LoadResolver reads a JSON alias table. A missing file yields an empty
// resolver; a malformed file is an error (fatal at startup).
func LoadResolver(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			telemetry.Infof("No team aliases file at %s, using empty alias table", path)
			return NewResolver(), nil
		}
		return nil, fmt.Errorf("read team aliases: %w", err)
	}

	var cfg TeamAliases
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse team aliases: %w", err)
	}

	r := NewResolver()
	for _, entry := range cfg.Teams {
		canonical := normalizeText(entry.Canonical)
		r.aliases[canonical] = canonical
		for _, alias := range entry.Aliases {
			r.aliases[normalizeText(alias)] = canonical
		}
	}

	telemetry.Infof("Loaded %d team alias mappings", len(r.aliases))
	return r, nil
}

// AddAlias registers one alias -> canonical mapping.
func (r *Resolver) AddAlias(alias, canonical string) {
	r.aliases[normalizeText(alias)] = normalizeText(canonical)
}

// Normalize returns the canonical form of a team name. An unknown name
// is its own canonical.
func (r *Resolver) Normalize(name string) string {
	n := normalizeText(name)
	if canonical, ok := r.aliases[n]; ok {
		return canonical
	}
	return n
}

// NamesMatch reports whether two team names refer to the same team.
func (r *Resolver) NamesMatch(a, b string) bool {
	return r.Normalize(a) == r.Normalize(b)
}

// MatchMarketToLive finds the first live match whose radiant/dire pair
// equals the market's team pair in either orientation. Ties break by
// input order. Returns nil when nothing matches.
func (r *Resolver) MatchMarketToLive(market models.PolymarketMarket, liveMatches []models.LiveMatchState) *MatchResult {
	teamA := r.Normalize(market.TeamA)
	teamB := r.Normalize(market.TeamB)

	telemetry.Debugf("Trying to match market: %s vs %s", teamA, teamB)

	for _, live := range liveMatches {
		radiant := r.Normalize(live.Radiant.Name)
		dire := r.Normalize(live.Dire.Name)

		teamAIsRadiant := teamA == radiant && teamB == dire
		teamAIsDire := teamA == dire && teamB == radiant

		if teamAIsRadiant || teamAIsDire {
			telemetry.Infof("Matched market %s to live match %d", market.ConditionID, live.MatchID)
			return &MatchResult{
				Market:               market,
				MatchState:           live,
				MarketTeamAIsRadiant: teamAIsRadiant,
			}
		}
	}

	telemetry.Debugf("No match found for market %s", market.ConditionID)
	return nil
}
