package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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
	Create(ctx context.Context, bill Bill) (int64, error)
	Update(ctx context.Context, bill Bill) error
	ReplaceItems(ctx context.Context, billID int64, items []Item) error
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

const billColumns = `id, bill_number, vendor_id, po_id, total_amount, status, payment_status, issue_date, due_date, COALESCE(document_path, ''), created_at, updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	var poID pgtype.Int8
	var total pgtype.Numeric
	var issueDate, dueDate pgtype.Date
	err := row.Scan(&b.ID, &b.BillNumber, &b.VendorID, &poID, &total, &b.Status, &b.PaymentStatus,
		&issueDate, &dueDate, &b.DocumentPath, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	if poID.Valid {
		b.PurchaseOrderID = &poID.Int64
	}
	if total.Valid {
		f, _ := total.Float64Value()
		b.TotalAmount = f.Float64
	}
	if issueDate.Valid {
		b.IssueDate = issueDate.Time
	}
	if dueDate.Valid {
		b.DueDate = dueDate.Time
	}
	return b, nil
}

// mapWriteError turns the one-bill-per-PO partial unique index violation
// into the domain conflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: a bill already exists for this purchase order", shared.ErrConflict)
	}
	return err
}

// Get returns a bill with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, fmt.Errorf("%w: bill %d", shared.ErrNotFound, id)
		}
		return Bill{}, err
	}
	bill.Items, err = r.loadItems(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	return bill, nil
}

func (r *Repository) loadItems(ctx context.Context, billID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT description, qty, unit_price FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
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

// List returns bills filtered by status, payment status and vendor.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit, offset int) ([]Bill, int, error) {
	countSQL := `SELECT COUNT(*) FROM bills WHERE 1=1`
	dataSQL := `SELECT ` + billColumns + ` FROM bills WHERE 1=1`
	args := []any{}
	argNum := 1

	addClause := func(clause string, value any) {
		countSQL += clause
		dataSQL += clause
		args = append(args, value)
		argNum++
	}
	if filters.Status != "" {
		addClause(fmt.Sprintf(` AND status = $%d`, argNum), filters.Status)
	}
	if filters.PaymentStatus != "" {
		addClause(fmt.Sprintf(` AND payment_status = $%d`, argNum), filters.PaymentStatus)
	}
	if filters.VendorID > 0 {
		addClause(fmt.Sprintf(` AND vendor_id = $%d`, argNum), filters.VendorID)
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

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// ListLinked returns bills that reference a purchase order.
func (r *Repository) ListLinked(ctx context.Context) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+` FROM bills WHERE po_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

// Exists reports whether a bill record is present.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var present bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bills WHERE id = $1)`, id).Scan(&present)
	return present, err
}

// SetDocumentPath stores the rendered artifact pointer.
func (r *Repository) SetDocumentPath(ctx context.Context, id int64, path string) error {
	_, err := r.pool.Exec(ctx, `UPDATE bills SET document_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	return err
}

func numeric(v float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%f", v))
	return n
}

func (tx *txRepo) Create(ctx context.Context, bill Bill) (int64, error) {
	var poID pgtype.Int8
	if bill.PurchaseOrderID != nil {
		poID = pgtype.Int8{Int64: *bill.PurchaseOrderID, Valid: true}
	}
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO bills (bill_number, vendor_id, po_id, total_amount, status, payment_status, issue_date, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		bill.BillNumber, bill.VendorID, poID, numeric(bill.TotalAmount),
		string(bill.Status), string(bill.PaymentStatus),
		pgtype.Date{Time: bill.IssueDate, Valid: true}, pgtype.Date{Time: bill.DueDate, Valid: true}).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

func (tx *txRepo) Update(ctx context.Context, bill Bill) error {
	var poID pgtype.Int8
	if bill.PurchaseOrderID != nil {
		poID = pgtype.Int8{Int64: *bill.PurchaseOrderID, Valid: true}
	}
	tag, err := tx.tx.Exec(ctx, `UPDATE bills SET po_id = $1, total_amount = $2, status = $3, payment_status = $4, due_date = $5, updated_at = NOW() WHERE id = $6`,
		poID, numeric(bill.TotalAmount), string(bill.Status), string(bill.PaymentStatus),
		pgtype.Date{Time: bill.DueDate, Valid: true}, bill.ID)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bill %d", shared.ErrNotFound, bill.ID)
	}
	return nil
}

func (tx *txRepo) ReplaceItems(ctx context.Context, billID int64, items []Item) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := tx.tx.Exec(ctx, `INSERT INTO bill_items (bill_id, description, qty, unit_price) VALUES ($1, $2, $3, $4)`,
			billID, item.Description, numeric(item.Quantity), numeric(item.UnitPrice)); err != nil {
			return err
		}
	}
	return nil
}

func (tx *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.tx.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bill %d", shared.ErrNotFound, id)
	}
	return nil
}
