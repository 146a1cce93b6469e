package db

import (
	"database/sql"
	"fmt"

	"github.com/dotaedge/esport-signal/internal/telemetry"
)

// HistoricalMatch is one finished pro match kept for model training.
// The gold/XP advantage series are stored as JSON arrays.
type HistoricalMatch struct {
	ID             int64
	MatchID        int64
	RadiantTeam    string
	DireTeam       string
	RadiantWin     bool
	Duration       int32
	RadiantGoldAdv string
	RadiantXPAdv   string
	StartTime      int64
	LeagueName     string
	FetchedAt      string
}

// HistoricalStore persists backfilled pro matches, one row per match.
type HistoricalStore struct {
	db *sql.DB
}

const historicalSchema = `CREATE TABLE IF NOT EXISTS historical_matches (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id         INTEGER UNIQUE NOT NULL,
	radiant_team     TEXT,
	dire_team        TEXT,
	radiant_win      BOOLEAN NOT NULL,
	duration         INTEGER NOT NULL,
	radiant_gold_adv TEXT    NOT NULL,
	radiant_xp_adv   TEXT    NOT NULL,
	start_time       INTEGER,
	league_name      TEXT,
	fetched_at       TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_historical_match_id   ON historical_matches (match_id);
CREATE INDEX IF NOT EXISTS idx_historical_start_time ON historical_matches (start_time);`

// OpenHistoricalStore opens (creating if needed) the historical-match
// table in the same database as the signals.
func OpenHistoricalStore(databaseURL string) (*HistoricalStore, error) {
	db, err := open(databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(historicalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init historical schema: %w", err)
	}

	telemetry.Infof("Historical store initialized")
	return &HistoricalStore{db: db}, nil
}

// InsertMatch stores a match, ignoring duplicates by match_id.
// Returns true when a row was actually written.
func (s *HistoricalStore) InsertMatch(m *HistoricalMatch) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO historical_matches (
			match_id, radiant_team, dire_team, radiant_win, duration,
			radiant_gold_adv, radiant_xp_adv, start_time, league_name, fetched_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.MatchID, m.RadiantTeam, m.DireTeam, m.RadiantWin, m.Duration,
		m.RadiantGoldAdv, m.RadiantXPAdv, m.StartTime, m.LeagueName, m.FetchedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert historical match: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert historical match: %w", err)
	}
	return n > 0, nil
}

// MatchExists reports whether a match is already stored.
func (s *HistoricalStore) MatchExists(matchID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM historical_matches WHERE match_id = ?`, matchID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check historical match: %w", err)
	}
	return true, nil
}

// MinMatchID returns the smallest stored match_id, or 0 when empty.
// The backfill resumes pagination from here.
func (s *HistoricalStore) MinMatchID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow(`SELECT MIN(match_id) FROM historical_matches`).Scan(&id); err != nil {
		return 0, fmt.Errorf("min historical match id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// AllMatches returns every stored match, oldest first.
func (s *HistoricalStore) AllMatches() ([]HistoricalMatch, error) {
	rows, err := s.db.Query(
		`SELECT id, match_id, radiant_team, dire_team, radiant_win, duration,
			radiant_gold_adv, radiant_xp_adv, start_time, league_name, fetched_at
		 FROM historical_matches
		 ORDER BY match_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query historical matches: %w", err)
	}
	defer rows.Close()

	var out []HistoricalMatch
	for rows.Next() {
		var m HistoricalMatch
		if err := rows.Scan(
			&m.ID, &m.MatchID, &m.RadiantTeam, &m.DireTeam, &m.RadiantWin, &m.Duration,
			&m.RadiantGoldAdv, &m.RadiantXPAdv, &m.StartTime, &m.LeagueName, &m.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan historical match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *HistoricalStore) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM historical_matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count historical matches: %w", err)
	}
	return count, nil
}

func (s *HistoricalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
