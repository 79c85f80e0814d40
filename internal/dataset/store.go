package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS training_records (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id              TEXT NOT NULL,
	attempt               INTEGER NOT NULL,
	theme                 TEXT NOT NULL,
	input_char_len        INTEGER NOT NULL,
	input_word_count      INTEGER NOT NULL,
	css_density_spacing   INTEGER NOT NULL,
	css_density_layout    INTEGER NOT NULL,
	pathological_score    REAL NOT NULL,
	theme_id              INTEGER NOT NULL,
	active_strategy_id    INTEGER NOT NULL,
	strategy_id           INTEGER NOT NULL,
	approved              INTEGER NOT NULL,
	reason                TEXT,
	overrides_json        TEXT NOT NULL,
	resolved_strategy_id  INTEGER NOT NULL,
	created_at            TEXT NOT NULL,
	UNIQUE (build_id, attempt)
);

CREATE INDEX IF NOT EXISTS idx_training_records_build
	ON training_records (build_id);
`
// #endregion schema

// #region store-struct
// Store manages the training corpus in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer connection: concurrent builds append records and SQLite
	// allows a single writer even under WAL.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion constructor

// #region append
// Append inserts one attempt record. New records start out unresolved;
// Resolve backfills the label once the build terminates.
func (s *Store) Append(rec Record) (int64, error) {
	overridesJSON, err := json.Marshal(rec.Overrides)
	if err != nil {
		return 0, fmt.Errorf("marshal overrides: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(
		`INSERT INTO training_records (
			build_id, attempt, theme,
			input_char_len, input_word_count, css_density_spacing, css_density_layout,
			pathological_score, theme_id, active_strategy_id,
			strategy_id, approved, reason, overrides_json, resolved_strategy_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.Attempt, rec.Theme,
		rec.Features.CharLen, rec.Features.WordCount,
		rec.Features.DensitySpacing, rec.Features.DensityLayout,
		rec.Features.PathologicalScore, rec.Features.ThemeID, rec.Features.StrategyID,
		int(rec.Strategy), boolToInt(rec.Approved), rec.Reason,
		string(overridesJSON), int(strategy.Unresolved),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return res.LastInsertId()
}
// #endregion append

// #region resolve
// Resolve backfills the resolved strategy onto every attempt of a build.
// A successful build labels all of its attempts with the strategy that
// closed it; a rejected build labels them Unresolved.
func (s *Store) Resolve(buildID string, resolved strategy.Strategy) error {
	res, err := s.db.Exec(
		`UPDATE training_records SET resolved_strategy_id = ? WHERE build_id = ?`,
		int(resolved), buildID,
	)
	if err != nil {
		return fmt.Errorf("resolve build %s: %w", buildID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resolve build %s: no records", buildID)
	}
	return nil
}
// #endregion resolve

// #region all
// All returns every record ordered by build and attempt.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, build_id, attempt, theme,
			input_char_len, input_word_count, css_density_spacing, css_density_layout,
			pathological_score, theme_id, active_strategy_id,
			strategy_id, approved, reason, overrides_json, resolved_strategy_id, created_at
		 FROM training_records ORDER BY build_id, attempt`,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var strategyID, approved, resolvedID int
	var reason sql.NullString
	var overridesJSON, createdStr string

	err := rows.Scan(
		&rec.ID, &rec.BuildID, &rec.Attempt, &rec.Theme,
		&rec.Features.CharLen, &rec.Features.WordCount,
		&rec.Features.DensitySpacing, &rec.Features.DensityLayout,
		&rec.Features.PathologicalScore, &rec.Features.ThemeID, &rec.Features.StrategyID,
		&strategyID, &approved, &reason, &overridesJSON, &resolvedID, &createdStr,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Strategy = strategy.Strategy(strategyID)
	rec.Approved = approved != 0
	if reason.Valid {
		rec.Reason = reason.String
	}
	if err := json.Unmarshal([]byte(overridesJSON), &rec.Overrides); err != nil {
		return Record{}, fmt.Errorf("unmarshal overrides: %w", err)
	}
	rec.ResolvedStrategy = strategy.Strategy(resolvedID)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}
// #endregion all

// #region stats
// Stats summarizes the stored corpus by resolved strategy.
func (s *Store) Stats() (Stats, error) {
	st := Stats{ByStrategy: make(map[strategy.Strategy]int)}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT build_id),
			COALESCE(SUM(approved), 0)
		 FROM training_records`,
	).Scan(&st.Records, &st.Builds, &st.Approved)
	if err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT resolved_strategy_id, COUNT(*)
		 FROM training_records GROUP BY resolved_strategy_id`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("stats by strategy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		st.ByStrategy[strategy.Strategy(id)] = n
		if strategy.Strategy(id) == strategy.Unresolved {
			st.Unresolved = n
		}
	}
	return st, rows.Err()
}
// #endregion stats

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
