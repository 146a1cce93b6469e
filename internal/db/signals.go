package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"

	_ "modernc.org/sqlite"
)

// SignalStore is the append-only SQLite store for generated signals.
// Safe for concurrent use; the pool serializes writes.
type SignalStore struct {
	db *sql.DB
}

const signalSchema = `CREATE TABLE IF NOT EXISTS signals (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	market_condition_id TEXT    NOT NULL,
	match_id            INTEGER NOT NULL,
	signal_type         TEXT    NOT NULL,
	team_a_win_prob     REAL    NOT NULL,
	market_team_a_odds  REAL    NOT NULL,
	edge                REAL    NOT NULL,
	confidence          REAL    NOT NULL,
	strength            TEXT    NOT NULL,
	reason              TEXT    NOT NULL,
	match_snapshot      TEXT    NOT NULL,
	created_at          TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_market  ON signals (market_condition_id);
CREATE INDEX IF NOT EXISTS idx_signals_match   ON signals (match_id);
CREATE INDEX IF NOT EXISTS idx_signals_created ON signals (created_at);`

// OpenSignalStore opens (creating if needed) the signals database.
// databaseURL is "sqlite:<path>" or a bare path.
func OpenSignalStore(databaseURL string) (*SignalStore, error) {
	db, err := open(databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(signalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init signals schema: %w", err)
	}

	telemetry.Infof("Signal store initialized")
	return &SignalStore{db: db}, nil
}

// open resolves the sqlite path, creates its directory, and opens a
// pooled connection with WAL and a busy timeout.
func open(databaseURL string) (*sql.DB, error) {
	path := strings.TrimPrefix(databaseURL, "sqlite:")
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)

	return db, nil
}

// InsertSignal appends one signal and returns its row ID. No uniqueness
// is enforced; the same (market, match) pair may repeat.
func (s *SignalStore) InsertSignal(sig *models.Signal) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO signals (
			market_condition_id, match_id, signal_type,
			team_a_win_prob, market_team_a_odds, edge, confidence,
			strength, reason, match_snapshot, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		sig.MarketConditionID, sig.MatchID, string(sig.SignalType),
		sig.TeamAWinProb, sig.MarketTeamAOdds, sig.Edge, sig.Confidence,
		string(sig.Strength), sig.Reason, sig.MatchSnapshot,
		sig.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert signal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert signal id: %w", err)
	}
	return id, nil
}

// GetSignalsForMarket returns the most recent signals for a market.
func (s *SignalStore) GetSignalsForMarket(marketConditionID string, limit int64) ([]models.Signal, error) {
	rows, err := s.db.Query(
		`SELECT id, market_condition_id, match_id, signal_type,
			team_a_win_prob, market_team_a_odds, edge, confidence,
			strength, reason, match_snapshot, created_at
		 FROM signals
		 WHERE market_condition_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		marketConditionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query signals for market: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// GetSignalsForMatch returns the most recent signals for a match.
func (s *SignalStore) GetSignalsForMatch(matchID int64, limit int64) ([]models.Signal, error) {
	rows, err := s.db.Query(
		`SELECT id, market_condition_id, match_id, signal_type,
			team_a_win_prob, market_team_a_odds, edge, confidence,
			strength, reason, match_snapshot, created_at
		 FROM signals
		 WHERE match_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		matchID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query signals for match: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (s *SignalStore) GetSignalCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM signals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return count, nil
}

func scanSignals(rows *sql.Rows) ([]models.Signal, error) {
	var out []models.Signal
	for rows.Next() {
		var sig models.Signal
		var signalType, strength, createdAt string
		if err := rows.Scan(
			&sig.ID, &sig.MarketConditionID, &sig.MatchID, &signalType,
			&sig.TeamAWinProb, &sig.MarketTeamAOdds, &sig.Edge, &sig.Confidence,
			&strength, &sig.Reason, &sig.MatchSnapshot, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.SignalType = models.SignalType(signalType)
		sig.Strength = models.SignalStrength(strength)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			sig.CreatedAt = t
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *SignalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
