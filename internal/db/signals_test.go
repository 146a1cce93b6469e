package db

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotaedge/esport-signal/internal/models"
)

func newTestStore(t *testing.T) *SignalStore {
	t.Helper()
	store, err := OpenSignalStore("sqlite:" + filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSignal(market string, matchID int64, createdAt time.Time) *models.Signal {
	return &models.Signal{
		MarketConditionID: market,
		MatchID:           matchID,
		SignalType:        models.SignalTowerKill,
		TeamAWinProb:      0.64,
		MarketTeamAOdds:   0.55,
		Edge:              0.09,
		Confidence:        0.7,
		Strength:          models.StrengthStrong,
		Reason:            "Tower destroyed: Team Spirit favored at 9%",
		MatchSnapshot:     `{"match_id":7}`,
		CreatedAt:         createdAt,
	}
}

func TestInsertAndFetchSignal(t *testing.T) {
	store := newTestStore(t)

	id, err := store.InsertSignal(testSignal("0xabc", 7, time.Now()))
	require.NoError(t, err)
	assert.Positive(t, id)

	byMarket, err := store.GetSignalsForMarket("0xabc", 10)
	require.NoError(t, err)
	require.Len(t, byMarket, 1)
	got := byMarket[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.SignalTowerKill, got.SignalType)
	assert.Equal(t, models.StrengthStrong, got.Strength)
	assert.InDelta(t, 0.09, got.Edge, 1e-9)
	assert.Equal(t, `{"match_id":7}`, got.MatchSnapshot)
	assert.False(t, got.CreatedAt.IsZero())

	byMatch, err := store.GetSignalsForMatch(7, 10)
	require.NoError(t, err)
	require.Len(t, byMatch, 1)
}

func TestDuplicateSignalsBothPersist(t *testing.T) {
	store := newTestStore(t)

	sig := testSignal("0xabc", 7, time.Now())
	id1, err := store.InsertSignal(sig)
	require.NoError(t, err)
	id2, err := store.InsertSignal(sig)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	rows, err := store.GetSignalsForMatch(7, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	count, err := store.GetSignalCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSignalsOrderedByRecency(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := store.InsertSignal(testSignal("0xabc", 7, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	rows, err := store.GetSignalsForMarket("0xabc", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
	assert.True(t, rows[1].CreatedAt.After(rows[2].CreatedAt))
}

func TestGetSignalsScopedToKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertSignal(testSignal("0xabc", 7, time.Now()))
	require.NoError(t, err)
	_, err = store.InsertSignal(testSignal("0xdef", 8, time.Now()))
	require.NoError(t, err)

	rows, err := store.GetSignalsForMarket("0xabc", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].MatchID)

	rows, err = store.GetSignalsForMatch(8, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0xdef", rows[0].MarketConditionID)
}

func TestSchemaIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	url := "sqlite:" + filepath.Join(dir, "signals.db")

	first, err := OpenSignalStore(url)
	require.NoError(t, err)
	_, err = first.InsertSignal(testSignal("0xabc", 7, time.Now()))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening must not clobber existing rows.
	second, err := OpenSignalStore(url)
	require.NoError(t, err)
	defer second.Close()

	count, err := second.GetSignalCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRoshanKillRoundTrips(t *testing.T) {
	store := newTestStore(t)

	sig := testSignal("0xabc", 7, time.Now())
	sig.SignalType = models.SignalRoshanKill
	_, err := store.InsertSignal(sig)
	require.NoError(t, err)

	rows, err := store.GetSignalsForMatch(7, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SignalRoshanKill, rows[0].SignalType)
}

func TestHistoricalStore(t *testing.T) {
	url := "sqlite:" + filepath.Join(t.TempDir(), "signals.db")
	store, err := OpenHistoricalStore(url)
	require.NoError(t, err)
	defer store.Close()

	m := &HistoricalMatch{
		MatchID:        8200000000,
		RadiantTeam:    "Team Spirit",
		DireTeam:       "OG",
		RadiantWin:     true,
		Duration:       2460,
		RadiantGoldAdv: "[0,250,900]",
		RadiantXPAdv:   "[0,100,400]",
		StartTime:      1756100000,
		LeagueName:     "The International",
		FetchedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	inserted, err := store.InsertMatch(m)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Duplicate match_id is ignored, not an error.
	inserted, err = store.InsertMatch(m)
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := store.MatchExists(8200000000)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.MatchExists(1)
	require.NoError(t, err)
	assert.False(t, exists)

	minID, err := store.MinMatchID()
	require.NoError(t, err)
	assert.Equal(t, int64(8200000000), minID)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	for i := range 3 {
		m2 := *m
		m2.MatchID = int64(8100000000 + i)
		_, err := store.InsertMatch(&m2)
		require.NoError(t, err, fmt.Sprintf("insert %d", i))
	}
	minID, err = store.MinMatchID()
	require.NoError(t, err)
	assert.Equal(t, int64(8100000000), minID)
}
