package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotaedge/esport-signal/internal/config"
	"github.com/dotaedge/esport-signal/internal/core/matching"
	"github.com/dotaedge/esport-signal/internal/core/state"
	"github.com/dotaedge/esport-signal/internal/core/strategy"
	"github.com/dotaedge/esport-signal/internal/models"
)

type fakeMarketSource struct {
	markets []models.PolymarketMarket
	err     error
	calls   int
}

func (f *fakeMarketSource) FetchDota2Markets(context.Context) ([]models.PolymarketMarket, error) {
	f.calls++
	return f.markets, f.err
}

type fakeLiveSource struct {
	matches []models.LiveMatchState
	err     error
	calls   int
}

func (f *fakeLiveSource) FetchLiveMatches(context.Context) ([]models.LiveMatchState, error) {
	f.calls++
	return f.matches, f.err
}

type fakeSink struct {
	signals []models.Signal
	err     error
}

func (f *fakeSink) InsertSignal(sig *models.Signal) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.signals = append(f.signals, *sig)
	return int64(len(f.signals)), nil
}

type fakePublisher struct {
	published []models.Signal
}

func (f *fakePublisher) PublishSignal(sig models.Signal) {
	f.published = append(f.published, sig)
}

func spiritMarket() models.PolymarketMarket {
	return models.PolymarketMarket{
		ConditionID: "0xabc",
		Question:    "Team Spirit vs OG",
		TeamA:       "Team Spirit",
		TeamB:       "OG",
		TeamAOdds:   0.55,
		TeamBOdds:   0.45,
		Liquidity:   12000,
		Active:      true,
	}
}

func spiritLive(gameTime int32) models.LiveMatchState {
	return models.LiveMatchState{
		MatchID:  7,
		Radiant:  models.TeamState{Name: "Team Spirit", Kills: 12, TowersKilled: 2},
		Dire:     models.TeamState{Name: "OG", Kills: 8, TowersKilled: 1},
		GoldLead: 4000,
		GameTime: gameTime,
		IsLive:   true,
	}
}

func TestScannerReplacesMarkets(t *testing.T) {
	markets := state.NewActiveMarkets()
	source := &fakeMarketSource{markets: []models.PolymarketMarket{spiritMarket()}}
	scanner := NewMarketScanner(source, markets, time.Minute)

	scanner.scan(context.Background())

	assert.Equal(t, 1, markets.Count())
	m, ok := markets.Get("0xabc")
	require.True(t, ok)
	assert.Equal(t, "Team Spirit", m.TeamA)
}

func TestScannerKeepsMarketsOnFailure(t *testing.T) {
	markets := state.NewActiveMarkets()
	source := &fakeMarketSource{markets: []models.PolymarketMarket{spiritMarket()}}
	scanner := NewMarketScanner(source, markets, time.Minute)

	scanner.scan(context.Background())
	require.Equal(t, 1, markets.Count())

	source.markets = nil
	source.err = errors.New("polymarket down")
	scanner.scan(context.Background())

	// The previous set survives a failed scan.
	assert.Equal(t, 1, markets.Count())
}

func TestScannerEmptyResultClearsMarkets(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})

	scanner := NewMarketScanner(&fakeMarketSource{}, markets, time.Minute)
	scanner.scan(context.Background())

	// A successful scan with zero markets is a real answer, not an error.
	assert.Equal(t, 0, markets.Count())
}

func TestFetcherSkipsWhenNoMarkets(t *testing.T) {
	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate, 10)
	fetcher := NewLiveFetcher(source, state.NewActiveMarkets(), state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Second)

	fetcher.poll(context.Background())

	assert.Equal(t, 0, source.calls)
	assert.Empty(t, updates)
}

func TestFetcherEnqueuesTransitions(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate, 10)
	fetcher := NewLiveFetcher(source, markets, state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Second)

	fetcher.poll(context.Background())
	require.Len(t, updates, 1)
	first := <-updates
	assert.Equal(t, "0xabc", first.MarketConditionID)
	assert.Nil(t, first.PreviousState, "first observation has no previous state")

	next := spiritLive(660)
	next.Radiant.TowersKilled = 3
	source.matches = []models.LiveMatchState{next}

	fetcher.poll(context.Background())
	require.Len(t, updates, 1)
	second := <-updates
	require.NotNil(t, second.PreviousState)
	assert.Equal(t, int32(2), second.PreviousState.Radiant.TowersKilled)
	assert.Equal(t, int32(3), second.State.Radiant.TowersKilled)
}

func TestFetcherBlocksUntilReceiverDrains(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate, 1)
	fetcher := NewLiveFetcher(source, markets, state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Second)

	fetcher.poll(context.Background())

	// The receiver lags: the channel is still full when a tower falls.
	next := spiritLive(660)
	next.Radiant.TowersKilled = 3
	source.matches = []models.LiveMatchState{next}

	done := make(chan struct{})
	go func() {
		fetcher.poll(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("poll returned before the receiver drained the channel")
	case <-time.After(100 * time.Millisecond):
	}

	first := <-updates
	assert.Nil(t, first.PreviousState)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not complete after the channel drained")
	}

	// The tower transition survives the backpressure intact.
	second := <-updates
	require.NotNil(t, second.PreviousState)
	assert.Equal(t, int32(2), second.PreviousState.Radiant.TowersKilled)
	assert.Equal(t, int32(3), second.State.Radiant.TowersKilled)

	eval := strategy.NewEvaluator(config.DefaultModelWeights())
	assert.Equal(t, models.SignalTowerKill, eval.Classify(second.State, second.PreviousState))
}

func TestFetcherBlockedSendStopsOnCancel(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate) // no receiver
	fetcher := NewLiveFetcher(source, markets, state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fetcher.poll(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked send did not release on cancel")
	}
}

func TestFetcherPollsImmediatelyOnStart(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate, 10)
	fetcher := NewLiveFetcher(source, markets, state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fetcher.Run(ctx)

	// The first poll happens at startup, not one interval later.
	select {
	case update := <-updates:
		assert.Equal(t, "0xabc", update.MarketConditionID)
	case <-time.After(2 * time.Second):
		t.Fatal("no update before the first tick")
	}
}

func TestFetcherIgnoresUnmatchedMarkets(t *testing.T) {
	markets := state.NewActiveMarkets()
	other := spiritMarket()
	other.TeamA = "Tundra Esports"
	other.TeamB = "Gaimin Gladiators"
	markets.Replace([]models.PolymarketMarket{other})

	source := &fakeLiveSource{matches: []models.LiveMatchState{spiritLive(600)}}
	updates := make(chan models.MatchUpdate, 10)
	fetcher := NewLiveFetcher(source, markets, state.NewLiveMatchCache(),
		matching.NewResolver(), updates, time.Second)

	fetcher.poll(context.Background())

	assert.Empty(t, updates)
	assert.Equal(t, 1, source.calls)
}

type fakeNotifier struct {
	alerts chan models.Signal
}

func (f *fakeNotifier) SignalAlert(_ context.Context, sig models.Signal) error {
	f.alerts <- sig
	return nil
}

func newProcessor(markets *state.ActiveMarkets, sink SignalSink, pub SignalPublisher, updates <-chan models.MatchUpdate) *SignalProcessor {
	eval := strategy.NewEvaluator(config.DefaultModelWeights())
	return NewSignalProcessor(markets, eval, sink, pub, nil, updates)
}

func TestProcessorStoresGameStartSignal(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	sink := &fakeSink{}
	proc := newProcessor(markets, sink, nil, nil)

	proc.process(models.MatchUpdate{
		MarketConditionID: "0xabc",
		State:             spiritLive(600),
	})

	require.Len(t, sink.signals, 1)
	sig := sink.signals[0]
	assert.Equal(t, models.SignalGameStart, sig.SignalType)
	assert.Equal(t, "0xabc", sig.MarketConditionID)
	assert.Equal(t, int64(7), sig.MatchID)
	assert.Equal(t, 0.55, sig.MarketTeamAOdds)
	assert.InDelta(t, sig.TeamAWinProb-0.55, sig.Edge, 1e-9)
	assert.True(t, strings.HasPrefix(sig.Reason, "Game started:"), sig.Reason)
	assert.False(t, sig.CreatedAt.IsZero())

	var snap models.LiveMatchState
	require.NoError(t, json.Unmarshal([]byte(sig.MatchSnapshot), &snap))
	assert.Equal(t, int64(7), snap.MatchID)
	assert.Equal(t, int64(4000), snap.GoldLead)
}

func TestProcessorClassifiesTransition(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	sink := &fakeSink{}
	proc := newProcessor(markets, sink, nil, nil)

	prev := spiritLive(600)
	cur := spiritLive(660)
	cur.Radiant.TowersKilled = 3
	proc.process(models.MatchUpdate{
		MarketConditionID: "0xabc",
		State:             cur,
		PreviousState:     &prev,
	})

	require.Len(t, sink.signals, 1)
	assert.Equal(t, models.SignalTowerKill, sink.signals[0].SignalType)
	assert.True(t, strings.HasPrefix(sink.signals[0].Reason, "Tower destroyed:"))
}

func TestProcessorDropsStaleMarket(t *testing.T) {
	sink := &fakeSink{}
	proc := newProcessor(state.NewActiveMarkets(), sink, nil, nil)

	proc.process(models.MatchUpdate{
		MarketConditionID: "0xgone",
		State:             spiritLive(600),
	})

	assert.Empty(t, sink.signals)
}

func TestProcessorPublishesStoredSignals(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	sink := &fakeSink{}
	pub := &fakePublisher{}
	proc := newProcessor(markets, sink, pub, nil)

	proc.process(models.MatchUpdate{
		MarketConditionID: "0xabc",
		State:             spiritLive(600),
	})

	require.Len(t, pub.published, 1)
	assert.Equal(t, int64(1), pub.published[0].ID, "published signal carries the stored row ID")
}

func TestProcessorStoreFailureSkipsPublish(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	sink := &fakeSink{err: errors.New("disk full")}
	pub := &fakePublisher{}
	proc := newProcessor(markets, sink, pub, nil)

	proc.process(models.MatchUpdate{
		MarketConditionID: "0xabc",
		State:             spiritLive(600),
	})

	assert.Empty(t, pub.published)
}

func TestProcessorNotifiesOnStrongSignals(t *testing.T) {
	markets := state.NewActiveMarkets()
	markets.Replace([]models.PolymarketMarket{spiritMarket()})
	notifier := &fakeNotifier{alerts: make(chan models.Signal, 1)}
	eval := strategy.NewEvaluator(config.DefaultModelWeights())
	proc := NewSignalProcessor(markets, eval, &fakeSink{}, nil, notifier, nil)

	// A lopsided late game yields a large edge against 0.55 odds.
	st := spiritLive(2400)
	st.Radiant.Kills = 40
	st.Dire.Kills = 10
	st.GoldLead = 30000
	st.Radiant.TowersKilled = 8
	proc.process(models.MatchUpdate{MarketConditionID: "0xabc", State: st})

	select {
	case sig := <-notifier.alerts:
		assert.True(t, sig.Strength.AtLeast(models.StrengthStrong))
	case <-time.After(2 * time.Second):
		t.Fatal("no alert for strong signal")
	}
}

func TestProcessorSkipsAlertForWeakSignals(t *testing.T) {
	markets := state.NewActiveMarkets()
	m := spiritMarket()
	markets.Replace([]models.PolymarketMarket{m})
	notifier := &fakeNotifier{alerts: make(chan models.Signal, 1)}
	eval := strategy.NewEvaluator(config.DefaultModelWeights())
	proc := NewSignalProcessor(markets, eval, &fakeSink{}, nil, notifier, nil)

	// An even early game: model sits near 0.5, edge vs 0.55 is small.
	st := spiritLive(300)
	st.Radiant.Kills = 5
	st.Dire.Kills = 5
	st.GoldLead = 0
	st.Radiant.TowersKilled = 0
	st.Dire.TowersKilled = 0
	proc.process(models.MatchUpdate{MarketConditionID: "0xabc", State: st})

	select {
	case <-notifier.alerts:
		t.Fatal("weak signal should not alert")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestProcessorStopsOnChannelClose(t *testing.T) {
	updates := make(chan models.MatchUpdate)
	proc := newProcessor(state.NewActiveMarkets(), &fakeSink{}, nil, updates)

	done := make(chan error, 1)
	go func() { done <- proc.Run(context.Background()) }()

	close(updates)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop on channel close")
	}
}

func TestProcessorStopsOnContextCancel(t *testing.T) {
	updates := make(chan models.MatchUpdate)
	proc := newProcessor(state.NewActiveMarkets(), &fakeSink{}, nil, updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- proc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop on cancel")
	}
}
