package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SessionResolver implements port.IdentityResolver against the platform
// session table. An unknown token resolves to 0, not an error.
type SessionResolver struct {
	store *Store
}

func NewSessionResolver(store *Store) *SessionResolver {
	return &SessionResolver{store: store}
}

func (r *SessionResolver) UserIDFromToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	var userID int64
	err := r.store.db.QueryRowContext(ctx,
		`SELECT user_id FROM app_sessions WHERE session_id = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("session lookup: %w", err)
	}
	return userID, nil
}
