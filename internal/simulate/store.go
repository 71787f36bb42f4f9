package simulate

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RunRecord is a persisted batch report.
type RunRecord struct {
	ID          string    `json:"id"`
	Preset      string    `json:"preset"`
	Strategy    string    `json:"strategy"`
	Games       int       `json:"games"`
	Solved      int       `json:"solved"`
	Exhausted   int       `json:"exhausted"`
	Failed      int       `json:"failed"`
	MaxGuesses  int       `json:"maxGuesses"`
	MeanGuesses float64   `json:"meanGuesses"`
	ElapsedMs   int64     `json:"elapsedMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// tsLayout is fixed width so created_at sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store persists batch reports in the sim_runs table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Save records rep under a fresh run ID.
func (s *Store) Save(ctx context.Context, rep Report) (RunRecord, error) {
	rec := RunRecord{
		ID:          uuid.NewString(),
		Preset:      rep.Preset,
		Strategy:    rep.Strategy,
		Games:       rep.Games,
		Solved:      rep.Solved,
		Exhausted:   rep.Exhausted,
		Failed:      rep.Failed,
		MaxGuesses:  rep.MaxGuesses,
		MeanGuesses: rep.MeanGuesses,
		ElapsedMs:   rep.Elapsed.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sim_runs
            (id, preset, strategy, games, solved, exhausted, failed, max_guesses, mean_guesses, elapsed_ms, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Preset, rec.Strategy, rec.Games, rec.Solved, rec.Exhausted, rec.Failed,
		rec.MaxGuesses, rec.MeanGuesses, rec.ElapsedMs, rec.CreatedAt.Format(tsLayout),
	)
	return rec, err
}

// Recent returns the latest runs, newest first. Default limit is 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, preset, strategy, games, solved, exhausted, failed, max_guesses, mean_guesses, elapsed_ms, created_at
        FROM sim_runs
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunRecord, 0, limit)
	for rows.Next() {
		var r RunRecord
		var created string
		if err := rows.Scan(&r.ID, &r.Preset, &r.Strategy, &r.Games, &r.Solved, &r.Exhausted, &r.Failed,
			&r.MaxGuesses, &r.MeanGuesses, &r.ElapsedMs, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(tsLayout, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
