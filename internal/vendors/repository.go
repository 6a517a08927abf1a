package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for vendors.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a vendor by id.
func (r *Repository) Get(ctx context.Context, id int64) (Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, status, created_at, updated_at FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Email, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
		}
		return Vendor{}, err
	}
	return v, nil
}

// Create inserts a vendor and returns the generated id.
func (r *Repository) Create(ctx context.Context, v Vendor) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO vendors (name, email, status, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`,
		v.Name, v.Email, string(v.Status)).Scan(&id)
	return id, err
}

// UpdateStatus sets a vendor's onboarding status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %d", shared.ErrNotFound, id)
	}
	return nil
}

// List returns vendors filtered by status when provided.
func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]Vendor, error) {
	query := `SELECT id, name, email, status, created_at, updated_at FROM vendors`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
