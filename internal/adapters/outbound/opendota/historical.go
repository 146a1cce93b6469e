package opendota

import (
	"context"
	"fmt"
	"net/http"
)

// ProMatch is one row of GET /proMatches.
type ProMatch struct {
	MatchID       int64   `json:"match_id"`
	RadiantTeamID *int64  `json:"radiant_team_id"`
	RadiantName   *string `json:"radiant_name"`
	DireTeamID    *int64  `json:"dire_team_id"`
	DireName      *string `json:"dire_name"`
	RadiantWin    *bool   `json:"radiant_win"`
	Duration      *int32  `json:"duration"`
	StartTime     *int64  `json:"start_time"`
	LeagueName    *string `json:"league_name"`
}

// MatchDetails is GET /matches/{id}, trimmed to the fields the backfill
// stores.
type MatchDetails struct {
	MatchID        int64       `json:"match_id"`
	RadiantWin     *bool       `json:"radiant_win"`
	Duration       *int32      `json:"duration"`
	StartTime      *int64      `json:"start_time"`
	RadiantTeam    *TeamInfo   `json:"radiant_team"`
	DireTeam       *TeamInfo   `json:"dire_team"`
	League         *LeagueInfo `json:"league"`
	RadiantGoldAdv []int32     `json:"radiant_gold_adv"`
	RadiantXPAdv   []int32     `json:"radiant_xp_adv"`
}

type TeamInfo struct {
	TeamID *int64  `json:"team_id"`
	Name   *string `json:"name"`
	Tag    *string `json:"tag"`
}

type LeagueInfo struct {
	LeagueID *int64  `json:"leagueid"`
	Name     *string `json:"name"`
}

// GetProMatches lists finished pro matches, paginated backwards by
// match ID when lessThanMatchID is positive.
func (c *Client) GetProMatches(ctx context.Context, lessThanMatchID int64) ([]ProMatch, error) {
	url := c.baseURL + "/proMatches"
	if lessThanMatchID > 0 {
		url = fmt.Sprintf("%s?less_than_match_id=%d", url, lessThanMatchID)
	}

	var matches []ProMatch
	if err := c.getJSON(ctx, url, &matches); err != nil {
		return nil, fmt.Errorf("fetch pro matches: %w", err)
	}
	return matches, nil
}

// GetMatchDetails fetches one finished match with its gold/XP advantage
// series. Returns nil for matches OpenDota has no record of.
func (c *Client) GetMatchDetails(ctx context.Context, matchID int64) (*MatchDetails, error) {
	url := fmt.Sprintf("%s/matches/%d", c.baseURL, matchID)

	var details MatchDetails
	if err := c.getJSON(ctx, url, &details); err != nil {
		if httpStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch match %d: %w", matchID, err)
	}
	return &details, nil
}
