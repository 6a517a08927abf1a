package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the audit_logs table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow returns audit events newest first within the filter window.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	query := `SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE 1=1`
	args := []any{}
	n := 0
	addClause := func(clause string, value any) {
		n++
		query += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, value)
	}
	if !filters.From.IsZero() {
		addClause("occurred_at >=", filters.From)
	}
	if !filters.To.IsZero() {
		addClause("occurred_at <=", filters.To)
	}
	if filters.Entity != "" {
		addClause("entity =", filters.Entity)
	}
	if filters.EntityID != "" {
		addClause("entity_id =", filters.EntityID)
	}
	if filters.Action != "" {
		addClause("action =", filters.Action)
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var actor pgtype.Int8
		var meta []byte
		if err := rows.Scan(&row.At, &actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if actor.Valid {
			row.ActorID = &actor.Int64
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				row.Meta = nil
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
