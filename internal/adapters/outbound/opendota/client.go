package opendota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

const defaultBaseURL = "https://api.opendota.com/api"

// Client fetches live professional match data from the OpenDota API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// liveMatch is the wire shape of one entry in GET /live.
type liveMatch struct {
	MatchID         string  `json:"match_id"`
	LeagueID        int64   `json:"league_id"`
	TeamNameRadiant *string `json:"team_name_radiant"`
	TeamNameDire    *string `json:"team_name_dire"`
	TeamIDRadiant   *int64  `json:"team_id_radiant"`
	TeamIDDire      *int64  `json:"team_id_dire"`
	RadiantScore    *int32  `json:"radiant_score"`
	DireScore       *int32  `json:"dire_score"`
	RadiantLead     *int64  `json:"radiant_lead"`
	GameTime        *int32  `json:"game_time"`
	BuildingState   *int64  `json:"building_state"`
}

func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// OpenDota free tier allows 60 calls/min.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, url: url, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	telemetry.Debugf("opendota: GET %s -> %d (%s)", url, resp.StatusCode, time.Since(start))
	return nil
}

// FetchLiveMatches returns all live professional matches: entries with a
// positive league_id or a named radiant team.
func (c *Client) FetchLiveMatches(ctx context.Context) ([]models.LiveMatchState, error) {
	var raw []liveMatch
	if err := c.getJSON(ctx, c.baseURL+"/live", &raw); err != nil {
		return nil, fmt.Errorf("fetch live matches: %w", err)
	}

	var pro []models.LiveMatchState
	for _, m := range raw {
		if m.LeagueID <= 0 && strOr(m.TeamNameRadiant, "") == "" {
			continue
		}
		pro = append(pro, convertMatch(m))
	}

	telemetry.Infof("OpenDota returned %d live pro matches", len(pro))
	return pro, nil
}

// FetchMatch returns one live match by ID, or nil when it is not live.
func (c *Client) FetchMatch(ctx context.Context, matchID int64) (*models.LiveMatchState, error) {
	matches, err := c.FetchLiveMatches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if matches[i].MatchID == matchID {
			return &matches[i], nil
		}
	}
	return nil, nil
}

func convertMatch(m liveMatch) models.LiveMatchState {
	matchID, err := strconv.ParseInt(m.MatchID, 10, 64)
	if err != nil {
		matchID = 0
	}

	// Absent building_state means no destroyed buildings, not a zero
	// mask (a zero mask would read as everything razed).
	var radiantTowersDown, direTowersDown, radiantRaxDown, direRaxDown int32
	if m.BuildingState != nil {
		radiantTowersDown, direTowersDown, radiantRaxDown, direRaxDown = buildingKills(uint64(*m.BuildingState))
	}

	return models.LiveMatchState{
		MatchID: matchID,
		Radiant: models.TeamState{
			Name:   strOr(m.TeamNameRadiant, "Radiant"),
			TeamID: i64Or(m.TeamIDRadiant, 0),
			Kills:  i32Or(m.RadiantScore, 0),
			// Crossed on purpose: radiant's counters track the enemy
			// buildings radiant has destroyed.
			TowersKilled:   direTowersDown,
			BarracksKilled: direRaxDown,
		},
		Dire: models.TeamState{
			Name:           strOr(m.TeamNameDire, "Dire"),
			TeamID:         i64Or(m.TeamIDDire, 0),
			Kills:          i32Or(m.DireScore, 0),
			TowersKilled:   radiantTowersDown,
			BarracksKilled: radiantRaxDown,
		},
		GoldLead:  i64Or(m.RadiantLead, 0),
		GameTime:  i32Or(m.GameTime, 0),
		IsLive:    true,
		UpdatedAt: time.Now().UTC(),
	}
}

// statusError is a non-2xx response. Callers that care about the code
// (the backfill treats 404 as "no record") can recover it via httpStatus.
type statusError struct {
	status int
	url    string
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("opendota: %s -> %d: %s", e.url, e.status, e.body)
}

func httpStatus(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

func strOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func i64Or(p *int64, fallback int64) int64 {
	if p == nil {
		return fallback
	}
	return *p
}

func i32Or(p *int32, fallback int32) int32 {
	if p == nil {
		return fallback
	}
	return *p
}
