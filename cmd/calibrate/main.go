// Calibrate the win-probability model against backfilled pro matches.
//
// Replays each match's radiant gold-advantage series through the model
// at fixed checkpoints and compares the predicted radiant win
// probability with the recorded result. Only the gold term can be
// replayed; kills and building counters are not part of the historical
// series, so the checkpoint probabilities reflect the gold weight and
// the time amplification in isolation.
//
// Usage:
//
//	go run ./cmd/fetch_historical 1000   # collect data first
//	go run ./cmd/calibrate
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/dotaedge/esport-signal/internal/config"
	"github.com/dotaedge/esport-signal/internal/core/strategy"
	"github.com/dotaedge/esport-signal/internal/db"
	"github.com/dotaedge/esport-signal/internal/models"
)

// checkpointMinutes are the game times at which predictions are scored.
var checkpointMinutes = []int{10, 20, 30}

type checkpointResult struct {
	minute int
	games  int

	brier    float64
	meanErr  float64 // mean signed error: prediction - outcome
	accuracy float64 // fraction where round(p) matches the result

	buckets []calBucket
}

type calBucket struct {
	label      string
	count      int
	meanPred   float64
	actualFreq float64
}

type bucketAccum struct {
	sumPred float64
	count   int
	wins    int
}

func main() {
	cfg := config.Load()

	weights, err := config.LoadModelWeights(cfg.ModelWeightsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: load model weights: %v\n", err)
		os.Exit(1)
	}
	evaluator := strategy.NewEvaluator(weights)

	store, err := db.OpenHistoricalStore(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: open historical store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	matches, err := store.AllMatches()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: load matches: %v\n", err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "No historical matches stored. Run cmd/fetch_historical first.")
		os.Exit(1)
	}

	fmt.Println("=== Win-Probability Model Calibration ===")
	fmt.Printf("Data: %d pro matches (gold-advantage replay)\n\n", len(matches))

	var results []checkpointResult
	for _, minute := range checkpointMinutes {
		r := calibrateCheckpoint(evaluator, matches, minute)
		results = append(results, r)
		printResult(r)
	}

	printSummary(results)
}

func calibrateCheckpoint(evaluator *strategy.Evaluator, matches []db.HistoricalMatch, minute int) checkpointResult {
	r := checkpointResult{minute: minute}

	var brierSum, errSum float64
	var correct int
	buckets := make([]bucketAccum, 10)

	for _, m := range matches {
		goldAdv, err := decodeSeries(m.RadiantGoldAdv)
		if err != nil || len(goldAdv) <= minute {
			continue
		}
		// Only score matches that were still running at the checkpoint.
		if m.Duration < int32(minute*60) {
			continue
		}

		state := models.LiveMatchState{
			MatchID:  m.MatchID,
			Radiant:  models.TeamState{Name: m.RadiantTeam},
			Dire:     models.TeamState{Name: m.DireTeam},
			GoldLead: goldAdv[minute],
			GameTime: int32(minute * 60),
		}

		p := evaluator.WinProbability(state)
		actual := 0.0
		if m.RadiantWin {
			actual = 1.0
		}

		r.games++
		brierSum += (p - actual) * (p - actual)
		errSum += p - actual
		if (p >= 0.5) == m.RadiantWin {
			correct++
		}
		addToBucket(buckets, p, actual)
	}

	if r.games > 0 {
		n := float64(r.games)
		r.brier = brierSum / n
		r.meanErr = errSum / n
		r.accuracy = float64(correct) / n
	}

	for i := 0; i < 10; i++ {
		b := buckets[i]
		if b.count == 0 {
			continue
		}
		r.buckets = append(r.buckets, calBucket{
			label:      fmt.Sprintf("%d-%d%%", i*10, (i+1)*10),
			count:      b.count,
			meanPred:   b.sumPred / float64(b.count),
			actualFreq: float64(b.wins) / float64(b.count),
		})
	}

	return r
}

func addToBucket(buckets []bucketAccum, pred, actual float64) {
	idx := int(pred * 10)
	if idx >= 10 {
		idx = 9
	}
	if idx < 0 {
		idx = 0
	}
	buckets[idx].sumPred += pred
	buckets[idx].count++
	if actual > 0.5 {
		buckets[idx].wins++
	}
}

func printResult(r checkpointResult) {
	fmt.Printf("── %d minutes (%d matches) ──\n", r.minute, r.games)
	if r.games == 0 {
		fmt.Println("  No matches reached this checkpoint with gold data.")
		fmt.Println()
		return
	}
	fmt.Printf("  Brier score:       %.4f\n", r.brier)
	fmt.Printf("  Accuracy:          %.1f%%\n", r.accuracy*100)
	fmt.Printf("  Mean signed error: %+.4f\n", r.meanErr)
	fmt.Println()

	if len(r.buckets) > 0 {
		fmt.Println("  Calibration buckets (predicted vs actual radiant wins):")
		fmt.Printf("  %-10s %6s %9s %8s %8s\n", "Bucket", "Count", "MeanPred", "ActFreq", "Error")
		for _, b := range r.buckets {
			fmt.Printf("  %-10s %6d %9.3f %8.3f %+8.3f\n",
				b.label, b.count, b.meanPred, b.actualFreq, b.meanPred-b.actualFreq)
		}
	}
	fmt.Println()
}

func printSummary(results []checkpointResult) {
	fmt.Println("══════════════════════════════════════")
	fmt.Println("  SUMMARY")
	fmt.Println("══════════════════════════════════════")

	var totalGames int
	var brierSum, errSum float64
	for _, r := range results {
		totalGames += r.games
		brierSum += r.brier * float64(r.games)
		errSum += r.meanErr * float64(r.games)
	}
	if totalGames == 0 {
		fmt.Println("  No scoreable checkpoints.")
		return
	}

	avgBrier := brierSum / float64(totalGames)
	avgErr := errSum / float64(totalGames)
	fmt.Printf("  Scored checkpoints: %d\n", totalGames)
	fmt.Printf("  Avg Brier score:    %.4f\n", avgBrier)
	fmt.Printf("  Avg signed error:   %+.4f\n", avgErr)
	fmt.Println()

	// A coin flip scores 0.25; the gold term alone should beat that.
	if avgBrier > 0.25 {
		fmt.Println("  WARNING: Brier score worse than a coin flip. Check per_thousand_gold.")
	}
	if math.Abs(avgErr) > 0.02 {
		fmt.Println("  WARNING: Systematic radiant bias exceeds 2%. Check progress_amplify.")
	}
}

func decodeSeries(raw string) ([]int64, error) {
	var series []int64
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		return nil, err
	}
	return series, nil
}
