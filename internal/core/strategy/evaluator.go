package strategy

import (
	"math"

	"github.com/dotaedge/esport-signal/internal/config"
	"github.com/dotaedge/esport-signal/internal/models"
)

// Evaluator turns a match-state diff into a classified, scored signal.
// Stateless apart from the model weights; safe for concurrent use.
type Evaluator struct {
	w config.ModelWeights
}

func NewEvaluator(w config.ModelWeights) *Evaluator {
	return &Evaluator{w: w}
}

// Classify picks the signal type for a state transition. First match
// wins; barracks beats towers beats kills beats gold beats the clock.
//
// first_blood and roshan_kill exist in the type set but have no trigger
// here: the live feed carries no event stream to derive them from.
func (e *Evaluator) Classify(current models.LiveMatchState, previous *models.LiveMatchState) models.SignalType {
	if previous == nil {
		return models.SignalGameStart
	}

	raxDiff := (current.Radiant.BarracksKilled - previous.Radiant.BarracksKilled) +
		(current.Dire.BarracksKilled - previous.Dire.BarracksKilled)
	if raxDiff > 0 {
		return models.SignalBarracksKill
	}

	towerDiff := (current.Radiant.TowersKilled - previous.Radiant.TowersKilled) +
		(current.Dire.TowersKilled - previous.Dire.TowersKilled)
	if towerDiff > 0 {
		return models.SignalTowerKill
	}

	killDiff := (current.Radiant.Kills - previous.Radiant.Kills) +
		(current.Dire.Kills - previous.Dire.Kills)
	if killDiff >= int32(e.w.KillSpreeKills) {
		return models.SignalKillSpree
	}

	swing := current.GoldLead - previous.GoldLead
	if swing < 0 {
		swing = -swing
	}
	if swing >= e.w.GoldSwingGold {
		return models.SignalGoldSwing
	}

	if previous.GameTime <= int32(e.w.LateGameSec) && current.GameTime > int32(e.w.LateGameSec) {
		return models.SignalLateGame
	}

	return models.SignalPeriodicUpdate
}

// WinProbability is the radiant win probability under the additive
// model: kills, gold lead, towers, and barracks move the needle from
// 0.5, and the deviation is amplified as the game progresses.
func (e *Evaluator) WinProbability(state models.LiveMatchState) float64 {
	p := 0.5

	killDiff := float64(state.Radiant.Kills - state.Dire.Kills)
	p += killDiff * e.w.PerKill

	p += float64(state.GoldLead) / 1000.0 * e.w.PerThousandGold

	towerDiff := float64(state.Radiant.TowersKilled - state.Dire.TowersKilled)
	p += towerDiff * e.w.PerTower

	raxDiff := float64(state.Radiant.BarracksKilled - state.Dire.BarracksKilled)
	p += raxDiff * e.w.PerBarracks

	progress := e.progress(state.GameTime)
	p = 0.5 + (p-0.5)*(1.0+progress*e.w.ProgressAmplify)

	return clamp(p, 0.05, 0.95)
}

// Confidence grows with game progress and with lopsided games.
func (e *Evaluator) Confidence(state models.LiveMatchState) float64 {
	c := 0.5 + e.progress(state.GameTime)*0.3

	killDiff := state.Radiant.Kills - state.Dire.Kills
	if killDiff < 0 {
		killDiff = -killDiff
	}
	goldLead := state.GoldLead
	if goldLead < 0 {
		goldLead = -goldLead
	}
	if killDiff >= 10 || goldLead >= 10000 {
		c += 0.15
	}

	return clamp(c, 0.3, 0.95)
}

func (e *Evaluator) progress(gameTime int32) float64 {
	return math.Min(float64(gameTime)/float64(e.w.FullProgressSec), 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
