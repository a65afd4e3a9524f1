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

var _ domain.ClientRepository = (*ClientRepository)(nil)

// ClientRepository stores clients in the store of the tenant bound to ctx.
type ClientRepository struct{}

func NewClientRepository() *ClientRepository { return &ClientRepository{} }

func (r *ClientRepository) NextIdentity() string { return uuid.NewString() }

const clientColumns = `id, name, tax_id, email, status, created_at, updated_at`

func (r *ClientRepository) Find(ctx context.Context, id string) (*domain.Client, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}
	c, err := scanClient(db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindClient, ID: id}
	}
	return c, err
}

// Save upserts the full client row in a single statement.
func (r *ClientRepository) Save(ctx context.Context, c *domain.Client) error {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return err
	}
	s := c.Snapshot()
	result, err := db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, email = excluded.email,
		   status = excluded.status, updated_at = excluded.updated_at
		 WHERE clients.status = ?`,
		s.ID, s.Name, s.TaxID, s.Email, string(s.Status), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
		string(c.StoredStatus()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.InvariantError{Kind: domain.KindClient, Message: fmt.Sprintf("tax id %q already registered", s.TaxID)}
		}
		return fmt.Errorf("saving client: %w", err)
	}
	if err := upserted(result, domain.KindClient, s.ID, string(c.StoredStatus())); err != nil {
		return err
	}
	c.MarkSaved()
	return nil
}

func (r *ClientRepository) List(ctx context.Context, page domain.Page) ([]*domain.Client, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}
	query, args := paginate(`SELECT `+clientColumns+` FROM clients ORDER BY name, id`, nil, page.Limit, page.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var out []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClient(row scanner) (*domain.Client, error) {
	var s domain.ClientSnapshot
	var status, createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.Name, &s.TaxID, &s.Email, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning client: %w", err)
	}
	s.Status = domain.ClientStatus(status)

	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return domain.RestoreClient(s)
}
