package repository

import (
	"context"
	"database/sql"
	"errors"

	"locker-pickup-control-plane/backend/internal/order/domain"
)

// PostgresRepository persists orders in the orders table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an order repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, tenant_id, site_id, external_ref, platform, rider_id, slot_id, status, assigned_at, picked_up_at, created_at, updated_at`

// GetByID returns the order for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// Create persists a new order. The order must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.TenantID, o.SiteID, o.ExternalRef, string(o.Platform),
		nullable(o.RiderID), nullable(o.SlotID), string(o.Status),
		o.AssignedAt, o.PickedUpAt, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// Update persists all mutable order fields.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET rider_id = $2, slot_id = $3, status = $4, assigned_at = $5, picked_up_at = $6, updated_at = $7
		WHERE id = $1`,
		o.ID, nullable(o.RiderID), nullable(o.SlotID), string(o.Status),
		o.AssignedAt, o.PickedUpAt, o.UpdatedAt,
	)
	return err
}

// ListByStatus returns the tenant's orders in the given status.
func (r *PostgresRepository) ListByStatus(ctx context.Context, tenantID string, status domain.Status) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at`, tenantID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                domain.Order
		platform, status string
		riderID, slotID  sql.NullString
	)
	err := row.Scan(&o.ID, &o.TenantID, &o.SiteID, &o.ExternalRef, &platform,
		&riderID, &slotID, &status, &o.AssignedAt, &o.PickedUpAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Platform = domain.Platform(platform)
	o.Status = domain.Status(status)
	o.RiderID = riderID.String
	o.SlotID = slotID.String
	return &o, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
