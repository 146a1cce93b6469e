package models

import "time"

// LiveMatchState is one observation of a live professional match.
// Each fetcher pass produces a fresh value that overwrites the prior
// cache entry for the same MatchID.
type LiveMatchState struct {
	MatchID int64 `json:"match_id"`

	LeagueName string `json:"league_name,omitempty"`

	Radiant TeamState `json:"radiant"`
	Dire    TeamState `json:"dire"`

	// GoldLead is radiant minus dire; negative means dire leads.
	GoldLead int64 `json:"gold_lead"`

	// GameTime is seconds since the horn. Negative during draft.
	GameTime int32 `json:"game_time"`

	IsLive    bool      `json:"is_live"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamState holds one side's counters. TowersKilled and BarracksKilled
// count enemy buildings this side has destroyed.
type TeamState struct {
	Name           string `json:"name"`
	TeamID         int64  `json:"team_id,omitempty"`
	Kills          int32  `json:"kills"`
	TowersKilled   int32  `json:"towers_killed"`
	BarracksKilled int32  `json:"barracks_killed"`
}

// MatchUpdate flows from the live fetcher to the signal processor.
// PreviousState is nil only on the first observation of a
// (market, match) pair.
type MatchUpdate struct {
	MarketConditionID string
	State             LiveMatchState
	PreviousState     *LiveMatchState
}
