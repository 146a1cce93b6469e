package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dotaedge/esport-signal/internal/core/state"
	"github.com/dotaedge/esport-signal/internal/core/strategy"
	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// SignalProcessor drains the update channel, scores each transition
// against the paired market's odds, and persists the resulting signal.
// publisher may be nil when no live consumers are configured.
type SignalProcessor struct {
	markets   *state.ActiveMarkets
	evaluator *strategy.Evaluator
	store     SignalSink
	publisher SignalPublisher
	notifier  SignalNotifier
	updates   <-chan models.MatchUpdate
}

func NewSignalProcessor(
	markets *state.ActiveMarkets,
	evaluator *strategy.Evaluator,
	store SignalSink,
	publisher SignalPublisher,
	notifier SignalNotifier,
	updates <-chan models.MatchUpdate,
) *SignalProcessor {
	return &SignalProcessor{
		markets:   markets,
		evaluator: evaluator,
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		updates:   updates,
	}
}

func (w *SignalProcessor) Run(ctx context.Context) error {
	telemetry.Infof("Signal processor started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-w.updates:
			if !ok {
				telemetry.Warnf("Update channel closed, signal processor stopping")
				return nil
			}
			w.process(update)
		}
	}
}

func (w *SignalProcessor) process(update models.MatchUpdate) {
	// The market may have been evicted by a scan after the update was
	// enqueued. Stale updates are dropped, not scored.
	market, ok := w.markets.Get(update.MarketConditionID)
	if !ok {
		telemetry.Metrics.DroppedUpdates.Inc()
		telemetry.Warnf("Market %s no longer active, dropping update for match %d",
			update.MarketConditionID, update.State.MatchID)
		return
	}

	signalType := w.evaluator.Classify(update.State, update.PreviousState)
	winProb := w.evaluator.WinProbability(update.State)
	edge := winProb - market.TeamAOdds
	confidence := w.evaluator.Confidence(update.State)
	strength := models.StrengthFromEdge(edge)
	reason := strategy.Reason(update.State, signalType, edge)

	snapshot, err := json.Marshal(update.State)
	if err != nil {
		telemetry.Errorf("Failed to encode match snapshot: %v", err)
		snapshot = []byte("{}")
	}

	sig := models.Signal{
		MarketConditionID: market.ConditionID,
		MatchID:           update.State.MatchID,
		SignalType:        signalType,
		TeamAWinProb:      winProb,
		MarketTeamAOdds:   market.TeamAOdds,
		Edge:              edge,
		Confidence:        confidence,
		Strength:          strength,
		Reason:            reason,
		MatchSnapshot:     string(snapshot),
		CreatedAt:         time.Now().UTC(),
	}

	id, err := w.store.InsertSignal(&sig)
	if err != nil {
		telemetry.Metrics.StoreErrors.Inc()
		telemetry.Errorf("Failed to store signal for market %s: %v", market.ConditionID, err)
		return
	}
	sig.ID = id

	telemetry.Metrics.SignalsStored.Inc()
	telemetry.Infof("Signal [%s/%s]: %s (edge: %+.3f, confidence: %.2f)",
		signalType, strength, reason, edge, confidence)

	if w.publisher != nil {
		w.publisher.PublishSignal(sig)
	}

	// Only strong divergences are worth an out-of-band ping. Sent off
	// the processing goroutine so a slow webhook cannot back up the
	// update channel.
	if w.notifier != nil && strength.AtLeast(models.StrengthStrong) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.notifier.SignalAlert(ctx, sig); err != nil {
				telemetry.Warnf("Signal alert failed: %v", err)
			}
		}()
	}
}
