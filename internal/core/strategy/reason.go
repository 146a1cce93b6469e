package strategy

import (
	"fmt"
	"math"

	"github.com/dotaedge/esport-signal/internal/models"
)

// Reason renders the human-readable explanation stored with a signal.
// Positive edge reads as the radiant side being favored by the model.
func Reason(state models.LiveMatchState, signalType models.SignalType, edge float64) string {
	direction := fmt.Sprintf("%s favored", state.Radiant.Name)
	if edge <= 0 {
		direction = fmt.Sprintf("%s favored", state.Dire.Name)
	}

	edgePct := math.Round(math.Abs(edge) * 100.0)

	switch signalType {
	case models.SignalGameStart:
		return fmt.Sprintf("Game started: %s at %.0f%%", direction, edgePct)
	case models.SignalKillSpree:
		return fmt.Sprintf("Kill spree detected: %s (%d:%d) - %s at %.0f%%",
			state.Radiant.Name, state.Radiant.Kills, state.Dire.Kills, direction, edgePct)
	case models.SignalTowerKill:
		return fmt.Sprintf("Tower destroyed: %s at %.0f%%", direction, edgePct)
	case models.SignalBarracksKill:
		return fmt.Sprintf("Barracks destroyed: %s at %.0f%%", direction, edgePct)
	case models.SignalRoshanKill:
		return fmt.Sprintf("Roshan killed: %s at %.0f%%", direction, edgePct)
	case models.SignalGoldSwing:
		leader := state.Dire.Name
		if state.GoldLead > 0 {
			leader = state.Radiant.Name
		}
		return fmt.Sprintf("Gold swing: %s lead by %.0fk - %s at %.0f%%",
			leader, math.Round(math.Abs(float64(state.GoldLead))/1000.0), direction, edgePct)
	case models.SignalLateGame:
		return fmt.Sprintf("Late game (%dmin): %s at %.0f%%", state.GameTime/60, direction, edgePct)
	default:
		return fmt.Sprintf("Update at %d:%02d: %s at %.0f%%",
			state.GameTime/60, state.GameTime%60, direction, edgePct)
	}
}
