package repository

import (
	"context"
	"database/sql"
	"errors"

	"locker-pickup-control-plane/backend/internal/rider/domain"
)

// PostgresRepository persists riders in the riders table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a rider repository using db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the rider for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, platform, external_ref, name, phone, active, created_at, updated_at
		FROM riders WHERE id = $1`, id)
	var rd domain.Rider
	err := row.Scan(&rd.ID, &rd.TenantID, &rd.Platform, &rd.ExternalRef, &rd.Name, &rd.Phone, &rd.Active, &rd.CreatedAt, &rd.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// Create persists a new rider. The rider must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, rd *domain.Rider) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO riders (id, tenant_id, platform, external_ref, name, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rd.ID, rd.TenantID, rd.Platform, rd.ExternalRef, rd.Name, rd.Phone, rd.Active, rd.CreatedAt, rd.UpdatedAt,
	)
	return err
}
