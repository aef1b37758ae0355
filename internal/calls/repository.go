package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"counsel-platform/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Repository stores call history in Postgres.
//
// Table layout is in pkg/utils.Schema. channel_id is unique: one row per call attempt.
type Repository struct {
	db    *sql.DB
	clock func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, clock: time.Now}
}

// Insert writes a new history row in status Calling.
func (r *Repository) Insert(ctx context.Context, c Call) (Call, error) {
	if c.ChannelID == "" || c.CallerID == "" || c.ReceiverID == "" || !c.CallType.Valid() {
		return Call{}, ErrInvalidArgument
	}
	if c.CallID == "" {
		c.CallID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CallStatusCalling
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = r.clock().UTC()
	}

	const q = `
INSERT INTO calls (call_id, channel_id, caller_id, receiver_id, call_type, status, duration, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	if _, err := r.db.ExecContext(ctx, q,
		c.CallID,
		c.ChannelID,
		c.CallerID,
		c.ReceiverID,
		string(c.CallType),
		string(c.Status),
		c.DurationSeconds,
		c.StartedAt,
	); err != nil {
		return Call{}, fmt.Errorf("calls: insert %s: %w", c.ChannelID, err)
	}
	return c, nil
}

// Finish moves a row to a final status. Both participants report their outcome, and the
// first final status wins; later calls return (false, nil).
func (r *Repository) Finish(ctx context.Context, channelID string, status CallStatus, durationSeconds int, endedAt time.Time) (bool, error) {
	if channelID == "" || !status.Final() || durationSeconds < 0 {
		return false, ErrInvalidArgument
	}
	if endedAt.IsZero() {
		endedAt = r.clock().UTC()
	}

	var updated bool
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `SELECT status FROM calls WHERE channel_id = $1 FOR UPDATE`
		var current string
		if err := tx.QueryRowContext(ctx, sel, channelID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if CallStatus(current).Final() {
			return nil
		}

		const upd = `UPDATE calls SET status = $2, duration = $3, ended_at = $4 WHERE channel_id = $1`
		if _, err := tx.ExecContext(ctx, upd, channelID, string(status), durationSeconds, endedAt); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (r *Repository) GetByChannel(ctx context.Context, channelID string) (Call, error) {
	const q = `
SELECT call_id, channel_id, caller_id, receiver_id, call_type, status, duration, started_at, ended_at
FROM calls
WHERE channel_id = $1
`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, channelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

// ListForParticipant returns calls placed or received by participantID in [from, to), newest first.
func (r *Repository) ListForParticipant(ctx context.Context, participantID string, from, to time.Time, limit int) ([]Call, error) {
	if participantID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT call_id, channel_id, caller_id, receiver_id, call_type, status, duration, started_at, ended_at
FROM calls
WHERE (caller_id = $1 OR receiver_id = $1) AND started_at >= $2 AND started_at < $3
ORDER BY started_at DESC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, participantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(s rowScanner) (Call, error) {
	var (
		c        Call
		callType string
		status   string
		endedAt  sql.NullTime
	)
	if err := s.Scan(
		&c.CallID,
		&c.ChannelID,
		&c.CallerID,
		&c.ReceiverID,
		&callType,
		&status,
		&c.DurationSeconds,
		&c.StartedAt,
		&endedAt,
	); err != nil {
		return Call{}, err
	}
	c.CallType = CallType(callType)
	c.Status = CallStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	return c, nil
}
