package models

import "time"

// SignalType classifies what changed between two observations of a match.
type SignalType string

const (
	SignalPeriodicUpdate SignalType = "periodic_update"
	SignalFirstBlood     SignalType = "first_blood"
	SignalKillSpree      SignalType = "kill_spree"
	SignalTowerKill      SignalType = "tower_kill"
	SignalBarracksKill   SignalType = "barracks_kill"
	SignalRoshanKill     SignalType = "roshan_kill"
	SignalGoldSwing      SignalType = "gold_swing"
	SignalGameStart      SignalType = "game_start"
	SignalLateGame       SignalType = "late_game"
)

// SignalStrength buckets a signal by the absolute edge.
type SignalStrength string

const (
	StrengthWeak       SignalStrength = "weak"
	StrengthModerate   SignalStrength = "moderate"
	StrengthStrong     SignalStrength = "strong"
	StrengthVeryStrong SignalStrength = "very_strong"
)

// StrengthFromEdge maps |edge| to a strength bucket. A value exactly on
// a boundary lands in the higher bucket.
func StrengthFromEdge(edge float64) SignalStrength {
	abs := edge
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < 0.03:
		return StrengthWeak
	case abs < 0.07:
		return StrengthModerate
	case abs < 0.12:
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}

// rank orders strengths for comparison; higher is stronger.
func (s SignalStrength) rank() int {
	switch s {
	case StrengthModerate:
		return 1
	case StrengthStrong:
		return 2
	case StrengthVeryStrong:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as strong as other.
func (s SignalStrength) AtLeast(other SignalStrength) bool {
	return s.rank() >= other.rank()
}

// Signal is the persisted product of the pipeline: a joint snapshot of
// market and match state plus the model's divergence evaluation.
type Signal struct {
	ID                int64
	MarketConditionID string
	MatchID           int64
	SignalType        SignalType
	TeamAWinProb      float64
	MarketTeamAOdds   float64
	Edge              float64
	Confidence        float64
	Strength          SignalStrength
	Reason            string
	MatchSnapshot     string // JSON-encoded LiveMatchState at signal time
	CreatedAt         time.Time
}
