package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelWeights are the per-factor weights and thresholds of the
// win-probability model. Values are additive probability deltas.
type ModelWeights struct {
	PerKill         float64 `yaml:"per_kill"`
	PerThousandGold float64 `yaml:"per_thousand_gold"`
	PerTower        float64 `yaml:"per_tower"`
	PerBarracks     float64 `yaml:"per_barracks"`

	// Late-game amplification saturates at FullProgressSec.
	FullProgressSec int     `yaml:"full_progress_sec"`
	ProgressAmplify float64 `yaml:"progress_amplify"`

	// Classification thresholds.
	KillSpreeKills int   `yaml:"kill_spree_kills"`
	GoldSwingGold  int64 `yaml:"gold_swing_gold"`
	LateGameSec    int   `yaml:"late_game_sec"`
}

// DefaultModelWeights returns the built-in model parameters.
func DefaultModelWeights() ModelWeights {
	return ModelWeights{
		PerKill:         0.005,
		PerThousandGold: 0.01,
		PerTower:        0.03,
		PerBarracks:     0.08,
		FullProgressSec: 2400,
		ProgressAmplify: 0.5,
		KillSpreeKills:  5,
		GoldSwingGold:   5000,
		LateGameSec:     2100,
	}
}

// LoadModelWeights reads model weights from a YAML file. An empty path
// returns the defaults; a present but malformed file is an error.
func LoadModelWeights(path string) (ModelWeights, error) {
	if path == "" {
		return DefaultModelWeights(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ModelWeights{}, fmt.Errorf("read model weights: %w", err)
	}

	w := DefaultModelWeights()
	if err := yaml.Unmarshal(data, &w); err != nil {
		return ModelWeights{}, fmt.Errorf("parse model weights: %w", err)
	}

	return w, nil
}
