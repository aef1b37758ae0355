package reporting

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"counsel-platform/internal/calls"
)

// PostgresRepo aggregates the calls table in the database.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) CountByStatus(ctx context.Context, participantID string, from, to time.Time) ([]StatusCount, error) {
	if participantID == "" {
		return nil, errors.New("participant_id required")
	}
	const q = `
SELECT status, COUNT(*), COALESCE(SUM(duration), 0)
FROM calls
WHERE (caller_id = $1 OR receiver_id = $1) AND started_at >= $2 AND started_at < $3
GROUP BY status
`
	rows, err := r.db.QueryContext(ctx, q, participantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StatusCount, 0)
	for rows.Next() {
		var (
			sc     StatusCount
			status string
		)
		if err := rows.Scan(&status, &sc.Calls, &sc.DurationSeconds); err != nil {
			return nil, err
		}
		sc.Status = calls.CallStatus(status)
		out = append(out, sc)
	}
	return out, rows.Err()
}
