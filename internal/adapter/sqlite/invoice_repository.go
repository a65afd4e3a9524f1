package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

var _ domain.InvoiceRepository = (*InvoiceRepository)(nil)

// InvoiceRepository stores invoices in the store of the tenant bound to ctx.
type InvoiceRepository struct{}

func NewInvoiceRepository() *InvoiceRepository { return &InvoiceRepository{} }

func (r *InvoiceRepository) NextIdentity() string { return uuid.NewString() }

const invoiceColumns = `id, client_id, number, total, currency, due_on, status, created_at, updated_at`

func (r *InvoiceRepository) Find(ctx context.Context, id string) (*domain.Invoice, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindInvoice, ID: id}
	}
	return inv, err
}

// Save upserts the invoice. Only status and updated_at change after creation,
// and only while the stored row still holds the status the invoice was loaded
// with.
func (r *InvoiceRepository) Save(ctx context.Context, inv *domain.Invoice) error {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return err
	}
	s := inv.Snapshot()
	result, err := db.ExecContext(ctx,
		`INSERT INTO invoices (`+invoiceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   status = excluded.status, updated_at = excluded.updated_at
		 WHERE invoices.status = ?`,
		s.ID, s.ClientID, s.Number, s.Total, s.Currency, formatDate(s.DueOn),
		string(s.Status), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
		string(inv.StoredStatus()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.InvariantError{Kind: domain.KindInvoice, Message: fmt.Sprintf("number %q already used", s.Number)}
		}
		return fmt.Errorf("saving invoice: %w", err)
	}
	if err := upserted(result, domain.KindInvoice, s.ID, string(inv.StoredStatus())); err != nil {
		return err
	}
	inv.MarkSaved()
	return nil
}

func (r *InvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1 = 1`
	var args []any
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	query += ` ORDER BY created_at DESC, id`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var out []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvoice(row scanner) (*domain.Invoice, error) {
	var s domain.InvoiceSnapshot
	var status, dueOn, createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.ClientID, &s.Number, &s.Total, &s.Currency, &dueOn,
		&status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}
	s.Status = domain.InvoiceStatus(status)

	var err error
	if s.DueOn, err = parseDate(dueOn); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return domain.RestoreInvoice(s)
}
