package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// CallRepository implements port.CallRepository on the shared store.
type CallRepository struct {
	store *Store
}

func NewCallRepository(store *Store) *CallRepository {
	return &CallRepository{store: store}
}

func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO calls (caller_id, callee_id, media_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		call.CallerID, call.CalleeID, string(call.Media), string(call.Status), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("call insert id: %w", err)
	}
	call.ID = id
	call.CreatedAt = now
	call.UpdatedAt = now
	return nil
}

func (r *CallRepository) Get(ctx context.Context, id int64) (*domain.Call, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, caller_id, callee_id, media_type, status, created_at, updated_at
		FROM calls WHERE id = ?`, id)
	return scanCall(row)
}

func (r *CallRepository) SetStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error {
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE calls SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("update call status: %w", err)
	}
	return nil
}

func (r *CallRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE calls SET updated_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch call: %w", err)
	}
	return nil
}

func (r *CallRepository) LatestRinging(ctx context.Context, calleeID int64, since time.Time) (*domain.Call, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, caller_id, callee_id, media_type, status, created_at, updated_at
		FROM calls
		WHERE callee_id = ? AND status = ? AND created_at >= ?
		ORDER BY id DESC LIMIT 1`,
		calleeID, string(domain.StatusRinging), since.Unix())
	return scanCall(row)
}

func scanCall(row *sql.Row) (*domain.Call, error) {
	var c domain.Call
	var media, status string
	var created, updated int64
	err := row.Scan(&c.ID, &c.CallerID, &c.CalleeID, &media, &status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}
	c.Media = domain.MediaType(media)
	c.Status = domain.Status(status)
	c.CreatedAt = time.Unix(created, 0).UTC()
	c.UpdatedAt = time.Unix(updated, 0).UTC()
	return &c, nil
}
