package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"locker-pickup-control-plane/backend/internal/audit/domain"
)

// PostgresRepository persists security events in the security_events table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security-event repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends one security event. The event must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO security_events
			(id, event_type, tenant_id, site_id, shelf_id, slot_id, order_id, rider_id, user_id, device_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, string(e.Type), e.TenantID,
		nullable(e.SiteID), nullable(e.ShelfID), nullable(e.SlotID), nullable(e.OrderID),
		nullable(e.RiderID), nullable(e.UserID), nullable(e.DeviceID),
		meta, e.CreatedAt,
	)
	return err
}

// List returns events matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*domain.SecurityEvent, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.TenantID != "" {
		add("tenant_id = $%d", f.TenantID)
	}
	if f.SiteID != "" {
		add("site_id = $%d", f.SiteID)
	}
	if f.Type != "" {
		add("event_type = $%d", string(f.Type))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	q := `SELECT id, event_type, tenant_id, site_id, shelf_id, slot_id, order_id, rider_id, user_id, device_id, metadata, created_at
		FROM security_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, f.Offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SecurityEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes events created before cutoff.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM security_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEvent(rows *sql.Rows) (*domain.SecurityEvent, error) {
	var (
		e                                             domain.SecurityEvent
		eventType                                     string
		site, shelf, slot, order, rider, user, device sql.NullString
		meta                                          []byte
	)
	if err := rows.Scan(&e.ID, &eventType, &e.TenantID, &site, &shelf, &slot, &order, &rider, &user, &device, &meta, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	e.SiteID = site.String
	e.ShelfID = shelf.String
	e.SlotID = slot.String
	e.OrderID = order.String
	e.RiderID = rider.String
	e.UserID = user.String
	e.DeviceID = device.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
