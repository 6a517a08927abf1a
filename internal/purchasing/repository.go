package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Create(ctx context.Context, po PurchaseOrder) (int64, error)
	Update(ctx context.Context, po PurchaseOrder) error
	ReplaceItems(ctx context.Context, poID int64, items []Item) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const poColumns = `id, order_number, vendor_id, total_amount, status, bill_id, issue_date, delivery_date, COALESCE(document_path, ''), created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var billID pgtype.Int8
	var total pgtype.Numeric
	var issueDate, deliveryDate pgtype.Date
	err := row.Scan(&po.ID, &po.OrderNumber, &po.VendorID, &total, &po.Status, &billID,
		&issueDate, &deliveryDate, &po.DocumentPath, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if billID.Valid {
		po.BillID = &billID.Int64
	}
	if total.Valid {
		f, _ := total.Float64Value()
		po.TotalAmount = f.Float64
	}
	if issueDate.Valid {
		po.IssueDate = issueDate.Time
	}
	if deliveryDate.Valid {
		po.DeliveryDate = deliveryDate.Time
	}
	return po, nil
}

// Get returns a purchase order with its items.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
		}
		return PurchaseOrder{}, err
	}
	po.Items, err = r.loadItems(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *Repository) loadItems(ctx context.Context, poID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT description, qty, unit_price FROM purchase_order_items WHERE po_id = $1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var qty, price pgtype.Numeric
		if err := rows.Scan(&item.Description, &qty, &price); err != nil {
			return nil, err
		}
		if qty.Valid {
			f, _ := qty.Float64Value()
			item.Quantity = f.Float64
		}
		if price.Valid {
			f, _ := price.Float64Value()
			item.UnitPrice = f.Float64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns purchase orders filtered by status and vendor.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit, offset int) ([]PurchaseOrder, int, error) {
	countSQL := `SELECT COUNT(*) FROM purchase_orders WHERE 1=1`
	dataSQL := `SELECT ` + poColumns + ` FROM purchase_orders WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		clause := fmt.Sprintf(` AND status = $%d`, argNum)
		countSQL += clause
		dataSQL += clause
		args = append(args, filters.Status)
		argNum++
	}
	if filters.VendorID > 0 {
		clause := fmt.Sprintf(` AND vendor_id = $%d`, argNum)
		countSQL += clause
		dataSQL += clause
		args = append(args, filters.VendorID)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListLinked returns purchase orders carrying a bill back-reference.
func (r *Repository) ListLinked(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE bill_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// SetBillRef updates the denormalized bill pointer and status together.
// A nil billID clears the pointer.
func (r *Repository) SetBillRef(ctx context.Context, id int64, billID *int64, status Status) error {
	var ref pgtype.Int8
	if billID != nil {
		ref = pgtype.Int8{Int64: *billID, Valid: true}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET bill_id = $1, status = $2, updated_at = NOW() WHERE id = $3`, ref, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return nil
}

// ClearBillRef clears the bill pointer without touching status, used when a
// bill is deleted.
func (r *Repository) ClearBillRef(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET bill_id = NULL, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// SetDocumentPath stores the rendered artifact pointer.
func (r *Repository) SetDocumentPath(ctx context.Context, id int64, path string) error {
	_, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET document_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	return err
}

func numeric(v float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%f", v))
	return n
}

func (tx *txRepo) Create(ctx context.Context, po PurchaseOrder) (int64, error) {
	var issueDate, deliveryDate pgtype.Date
	if !po.IssueDate.IsZero() {
		issueDate = pgtype.Date{Time: po.IssueDate, Valid: true}
	}
	if !po.DeliveryDate.IsZero() {
		deliveryDate = pgtype.Date{Time: po.DeliveryDate, Valid: true}
	}
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (order_number, vendor_id, total_amount, status, issue_date, delivery_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		po.OrderNumber, po.VendorID, numeric(po.TotalAmount), string(po.Status), issueDate, deliveryDate).Scan(&id)
	return id, err
}

func (tx *txRepo) Update(ctx context.Context, po PurchaseOrder) error {
	var deliveryDate pgtype.Date
	if !po.DeliveryDate.IsZero() {
		deliveryDate = pgtype.Date{Time: po.DeliveryDate, Valid: true}
	}
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET vendor_id = $1, total_amount = $2, status = $3, delivery_date = $4, updated_at = NOW() WHERE id = $5`,
		po.VendorID, numeric(po.TotalAmount), string(po.Status), deliveryDate, po.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, po.ID)
	}
	return nil
}

func (tx *txRepo) ReplaceItems(ctx context.Context, poID int64, items []Item) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE po_id = $1`, poID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items (po_id, description, qty, unit_price) VALUES ($1, $2, $3, $4)`,
			poID, item.Description, numeric(item.Quantity), numeric(item.UnitPrice)); err != nil {
			return err
		}
	}
	return nil
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return nil
}

func (tx *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE po_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return nil
}
