package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// Directory implements port.PushDirectory against the platform users table.
// All lookups are read-only; a user without tokens is simply unreachable.
type Directory struct {
	store *Store
}

func NewDirectory(store *Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) DataToken(ctx context.Context, userID int64) (string, error) {
	var token sql.NullString
	err := d.store.db.QueryRowContext(ctx,
		`SELECT firebase_device_token FROM users WHERE user_id = ?`, userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("data token lookup: %w", err)
	}
	return token.String, nil
}

func (d *Directory) VoipTarget(ctx context.Context, userID int64) (*domain.VoipTarget, error) {
	var token, env, bundle sql.NullString
	err := d.store.db.QueryRowContext(ctx,
		`SELECT pushkit_token, pushkit_env, pushkit_bundle FROM users WHERE user_id = ?`,
		userID).Scan(&token, &env, &bundle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voip target lookup: %w", err)
	}
	if token.String == "" {
		return nil, nil
	}
	return &domain.VoipTarget{
		Token:  token.String,
		Env:    env.String,
		Bundle: bundle.String,
	}, nil
}

func (d *Directory) Profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := d.store.db.QueryRowContext(ctx,
		`SELECT name, avatar FROM users WHERE user_id = ?`, userID).Scan(&p.Name, &p.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	return &p, nil
}
