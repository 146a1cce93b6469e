package models

import "time"

// PolymarketMarket is one tradable moneyline market for a Dota 2 series.
// Markets are replaced wholesale on every scanner pass, never mutated.
type PolymarketMarket struct {
	// ConditionID is the market's stable primary key on Polymarket.
	ConditionID string `json:"condition_id"`

	// Question is the market title, e.g. "Dota 2: Team Spirit vs OG (BO3)".
	Question string `json:"question"`

	TeamA string `json:"team_a"`
	TeamB string `json:"team_b"`

	// Implied probabilities in [0,1], not decimal odds.
	TeamAOdds float64 `json:"team_a_odds"`
	TeamBOdds float64 `json:"team_b_odds"`

	// Liquidity is the total market liquidity in USD.
	Liquidity float64 `json:"liquidity"`

	// EndDate is the market end time, if the API provided one.
	EndDate *time.Time `json:"end_date,omitempty"`

	Active bool `json:"active"`
}
