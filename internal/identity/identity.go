// Package identity resolves participant ids to display names and photos.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"counsel-platform/internal/calls"
)

var ErrNotFound = errors.New("identity: not found")

type Profile struct {
	ID       string                `json:"id"`
	Kind     calls.ParticipantKind `json:"kind"`
	Name     string                `json:"name"`
	PhotoURL string                `json:"photoUrl,omitempty"`
}

// Placeholder is shown when a participant cannot be resolved.
func Placeholder(id string) Profile {
	return Profile{ID: id, Kind: calls.KindUser, Name: "Unknown"}
}

// PostgresDirectory reads the users and counsellors tables.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Get(ctx context.Context, kind calls.ParticipantKind, id string) (Profile, error) {
	var q string
	switch kind {
	case calls.KindUser:
		q = `SELECT id, name, photo_url FROM users WHERE id = $1`
	case calls.KindCounsellor:
		q = `SELECT id, name, photo_url FROM counsellors WHERE id = $1`
	default:
		return Profile{}, fmt.Errorf("identity: unknown kind %q", kind)
	}

	p := Profile{Kind: kind}
	var photo sql.NullString
	if err := d.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &photo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.PhotoURL = photo.String
	return p, nil
}

// Lookup tries the user table first, then counsellors.
func (d *PostgresDirectory) Lookup(ctx context.Context, id string) (Profile, error) {
	p, err := d.Get(ctx, calls.KindUser, id)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}
	return d.Get(ctx, calls.KindCounsellor, id)
}
