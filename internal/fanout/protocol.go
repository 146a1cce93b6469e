package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dotaedge/esport-signal/internal/models"
)

// Envelope is the wire format for messages sent over the fanout WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

const typeSignal = "signal"

// signalWire is the JSON shape of a signal on the wire.
type signalWire struct {
	ID                int64   `json:"id"`
	MarketConditionID string  `json:"market_condition_id"`
	MatchID           int64   `json:"match_id"`
	SignalType        string  `json:"signal_type"`
	TeamAWinProb      float64 `json:"team_a_win_prob"`
	MarketTeamAOdds   float64 `json:"market_team_a_odds"`
	Edge              float64 `json:"edge"`
	Confidence        float64 `json:"confidence"`
	Strength          string  `json:"strength"`
	Reason            string  `json:"reason"`
	MatchSnapshot     string  `json:"match_snapshot"`
	CreatedAt         string  `json:"created_at"`
}

// MarshalSignal serializes a signal into a JSON-encoded Envelope.
func MarshalSignal(sig models.Signal) ([]byte, error) {
	payload, err := json.Marshal(signalWire{
		ID:                sig.ID,
		MarketConditionID: sig.MarketConditionID,
		MatchID:           sig.MatchID,
		SignalType:        string(sig.SignalType),
		TeamAWinProb:      sig.TeamAWinProb,
		MarketTeamAOdds:   sig.MarketTeamAOdds,
		Edge:              sig.Edge,
		Confidence:        sig.Confidence,
		Strength:          string(sig.Strength),
		Reason:            sig.Reason,
		MatchSnapshot:     sig.MatchSnapshot,
		CreatedAt:         sig.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal signal payload: %w", err)
	}
	return json.Marshal(Envelope{
		Type:      typeSignal,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// UnmarshalSignal deserializes a JSON Envelope back into a signal.
func UnmarshalSignal(data []byte) (models.Signal, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Signal{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type != typeSignal {
		return models.Signal{}, fmt.Errorf("unknown message type: %s", env.Type)
	}

	var w signalWire
	if err := json.Unmarshal(env.Payload, &w); err != nil {
		return models.Signal{}, fmt.Errorf("unmarshal signal: %w", err)
	}

	sig := models.Signal{
		ID:                w.ID,
		MarketConditionID: w.MarketConditionID,
		MatchID:           w.MatchID,
		SignalType:        models.SignalType(w.SignalType),
		TeamAWinProb:      w.TeamAWinProb,
		MarketTeamAOdds:   w.MarketTeamAOdds,
		Edge:              w.Edge,
		Confidence:        w.Confidence,
		Strength:          models.SignalStrength(w.Strength),
		Reason:            w.Reason,
		MatchSnapshot:     w.MatchSnapshot,
	}
	if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		sig.CreatedAt = t
	}
	return sig, nil
}
