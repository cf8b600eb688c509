package repository

import (
	"context"
	"database/sql"
	"errors"

	"locker-pickup-control-plane/backend/internal/slot/domain"
)

// PostgresRepository persists slots in the slots table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a slot repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const slotColumns = `id, shelf_id, site_id, tenant_id, slot_index, state, order_id, reserved_at, occupied_at, last_unlock_at, active, created_at, updated_at`

// GetByID returns the slot for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	s, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Create persists a new slot. The slot must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Slot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO slots (`+slotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.ShelfID, s.SiteID, s.TenantID, s.Index, string(s.State),
		nullable(s.OrderID), s.ReservedAt, s.OccupiedAt, s.LastUnlockAt,
		s.Active, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// Update persists all mutable slot fields.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Slot) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE slots
		SET state = $2, order_id = $3, reserved_at = $4, occupied_at = $5, last_unlock_at = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		s.ID, string(s.State), nullable(s.OrderID),
		s.ReservedAt, s.OccupiedAt, s.LastUnlockAt, s.Active, s.UpdatedAt,
	)
	return err
}

// ListEmptyBySite returns empty, active slots ordered by shelf then index.
func (r *PostgresRepository) ListEmptyBySite(ctx context.Context, tenantID, siteID string) ([]*domain.Slot, error) {
	return r.list(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE tenant_id = $1 AND site_id = $2 AND state = 'empty' AND active
		ORDER BY shelf_id, slot_index`, tenantID, siteID)
}

// ListByState returns the tenant's slots in the given state.
func (r *PostgresRepository) ListByState(ctx context.Context, tenantID string, state domain.State) ([]*domain.Slot, error) {
	return r.list(ctx, `
		SELECT `+slotColumns+` FROM slots
		WHERE tenant_id = $1 AND state = $2
		ORDER BY shelf_id, slot_index`, tenantID, string(state))
}

// ListShelves returns the distinct shelves carrying active slots.
func (r *PostgresRepository) ListShelves(ctx context.Context, tenantID string) ([]Shelf, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT tenant_id, site_id, shelf_id FROM slots
		WHERE tenant_id = $1 AND active
		ORDER BY site_id, shelf_id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shelf
	for rows.Next() {
		var sh Shelf
		if err := rows.Scan(&sh.TenantID, &sh.SiteID, &sh.ShelfID); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Slot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*domain.Slot, error) {
	var (
		s       domain.Slot
		state   string
		orderID sql.NullString
	)
	err := row.Scan(&s.ID, &s.ShelfID, &s.SiteID, &s.TenantID, &s.Index, &state,
		&orderID, &s.ReservedAt, &s.OccupiedAt, &s.LastUnlockAt, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.State = domain.State(state)
	s.OrderID = orderID.String
	return &s, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
