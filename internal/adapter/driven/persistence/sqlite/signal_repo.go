package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// SignalRepository implements port.SignalRepository on the shared store.
type SignalRepository struct {
	store *Store
}

func NewSignalRepository(store *Store) *SignalRepository {
	return &SignalRepository{store: store}
}

// ReplaceSdp deletes any existing (call, role, type) record before inserting,
// so only the latest offer/answer per role survives. Last write wins.
func (r *SignalRepository) ReplaceSdp(ctx context.Context, rec *domain.SdpRecord) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sdp replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM call_sdp WHERE call_id = ? AND role = ? AND sdp_type = ?`,
		rec.CallID, string(rec.Role), string(rec.Type)); err != nil {
		return fmt.Errorf("delete prior sdp: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO call_sdp (call_id, role, sdp_type, sdp, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.CallID, string(rec.Role), string(rec.Type), rec.SDP, now.Unix())
	if err != nil {
		return fmt.Errorf("insert sdp: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sdp insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sdp replace: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

func (r *SignalRepository) LatestSdp(ctx context.Context, callID int64, role domain.Role, typ domain.SdpType) (*domain.SdpRecord, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, call_id, role, sdp_type, sdp, created_at
		FROM call_sdp
		WHERE call_id = ? AND role = ? AND sdp_type = ?
		ORDER BY id DESC LIMIT 1`,
		callID, string(role), string(typ))
	return scanSdp(row)
}

func (r *SignalRepository) LatestSdpExcludingRole(ctx context.Context, callID int64, role domain.Role, typ domain.SdpType) (*domain.SdpRecord, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, call_id, role, sdp_type, sdp, created_at
		FROM call_sdp
		WHERE call_id = ? AND sdp_type = ? AND role != ?
		ORDER BY id DESC LIMIT 1`,
		callID, string(typ), string(role))
	return scanSdp(row)
}

// HasCandidate treats a stored NULL mid/mline as matching any submitted
// value, to tolerate peers that omit these fields inconsistently.
func (r *SignalRepository) HasCandidate(ctx context.Context, cand *domain.IceCandidate) (bool, error) {
	var id int64
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id FROM call_ice
		WHERE call_id = ? AND role = ? AND candidate = ?
		  AND (sdp_mid IS NULL OR sdp_mid = ?)
		  AND (sdp_mline_index IS NULL OR sdp_mline_index = ?)
		LIMIT 1`,
		cand.CallID, string(cand.Role), cand.Candidate,
		nullString(cand.SdpMid), nullInt(cand.SdpMlineIndex)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("candidate dedup lookup: %w", err)
	}
	return true, nil
}

func (r *SignalRepository) AddCandidate(ctx context.Context, cand *domain.IceCandidate) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO call_ice (call_id, role, candidate, sdp_mid, sdp_mline_index, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		cand.CallID, string(cand.Role), cand.Candidate,
		nullString(cand.SdpMid), nullInt(cand.SdpMlineIndex), now.Unix())
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("candidate insert id: %w", err)
	}
	cand.ID = id
	cand.CreatedAt = now
	return nil
}

// ClaimUndelivered reads and marks in one transaction. A response lost after
// the commit loses those candidates; accepted as at-least-once delivery.
func (r *SignalRepository) ClaimUndelivered(ctx context.Context, callID int64, role domain.Role, limit int) ([]domain.IceCandidate, error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin candidate claim: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, call_id, role, candidate, sdp_mid, sdp_mline_index, created_at
		FROM call_ice
		WHERE call_id = ? AND role = ? AND delivered = 0
		ORDER BY id ASC LIMIT ?`,
		callID, string(role), limit)
	if err != nil {
		return nil, fmt.Errorf("query undelivered candidates: %w", err)
	}

	var cands []domain.IceCandidate
	for rows.Next() {
		var c domain.IceCandidate
		var roleStr string
		var mid sql.NullString
		var mline sql.NullInt64
		var created int64
		if err := rows.Scan(&c.ID, &c.CallID, &roleStr, &c.Candidate, &mid, &mline, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Role = domain.Role(roleStr)
		if mid.Valid {
			v := mid.String
			c.SdpMid = &v
		}
		if mline.Valid {
			v := int(mline.Int64)
			c.SdpMlineIndex = &v
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		cands = append(cands, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	if len(cands) > 0 {
		placeholders := make([]string, len(cands))
		args := make([]any, len(cands))
		for i, c := range cands {
			placeholders[i] = "?"
			args[i] = c.ID
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE call_ice SET delivered = 1 WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
			args...); err != nil {
			return nil, fmt.Errorf("mark candidates delivered: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit candidate claim: %w", err)
	}
	for i := range cands {
		cands[i].Delivered = true
	}
	return cands, nil
}

func (r *SignalRepository) Purge(ctx context.Context, callID int64) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM call_sdp WHERE call_id = ?`, callID); err != nil {
		return fmt.Errorf("purge sdp: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM call_ice WHERE call_id = ?`, callID); err != nil {
		return fmt.Errorf("purge candidates: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge: %w", err)
	}
	return nil
}

func scanSdp(row *sql.Row) (*domain.SdpRecord, error) {
	var rec domain.SdpRecord
	var role, typ string
	var created int64
	err := row.Scan(&rec.ID, &rec.CallID, &role, &typ, &rec.SDP, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sdp: %w", err)
	}
	rec.Role = domain.Role(role)
	rec.Type = domain.SdpType(typ)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return &rec, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
