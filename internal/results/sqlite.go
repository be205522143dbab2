package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

const totemKey = "totem_id"

// SQLiteStore keeps each record as a JSONB document in game_results, with
// the columns needed for counting pulled out alongside it.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_results (id, result, score, created_at, data) VALUES (?, ?, ?, ?, jsonb(?))`,
		r.ID, string(r.Result), r.Score, r.Timestamp.UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting result %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM game_results ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(result = 'won'), 0),
		       COALESCE(SUM(result = 'timeout'), 0)
		FROM game_results
	`).Scan(&st.Total, &st.Won, &st.Timeout)
	if err != nil {
		return Stats{}, fmt.Errorf("counting results: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Scores(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT score FROM game_results ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	defer rows.Close()

	scores := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_results`); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TotemID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, totemKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultTotemID, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading totem id: %w", err)
	}
	return id, nil
}

// SetTotemID assigns the totem id once. Later calls fail with ErrTotemLocked
// until ResetTotemID.
func (s *SQLiteStore) SetTotemID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
		totemKey, id,
	)
	if err != nil {
		return fmt.Errorf("setting totem id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting totem id: %w", err)
	}
	if n == 0 {
		return ErrTotemLocked
	}
	return nil
}

func (s *SQLiteStore) ResetTotemID(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, totemKey); err != nil {
		return fmt.Errorf("resetting totem id: %w", err)
	}
	return nil
}

// NewRecord scores r with e and wraps it for storage.
func NewRecord(e *mayor.Engine, r mayor.GameResult) Record {
	return Record{GameResult: r, Score: e.ScoreResult(r)}
}
