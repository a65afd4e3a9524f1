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

var _ domain.ContractRepository = (*ContractRepository)(nil)

// ContractRepository stores contracts in the store of the tenant bound to ctx.
type ContractRepository struct{}

func NewContractRepository() *ContractRepository { return &ContractRepository{} }

func (r *ContractRepository) NextIdentity() string { return uuid.NewString() }

const contractColumns = `id, client_id, reference, starts_on, ends_on, monthly_fee, status, created_at, updated_at`

func (r *ContractRepository) Find(ctx context.Context, id string) (*domain.Contract, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}
	c, err := scanContract(db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindContract, ID: id}
	}
	return c, err
}

func (r *ContractRepository) Save(ctx context.Context, c *domain.Contract) error {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return err
	}
	s := c.Snapshot()
	result, err := db.ExecContext(ctx,
		`INSERT INTO contracts (`+contractColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   status = excluded.status, updated_at = excluded.updated_at
		 WHERE contracts.status = ?`,
		s.ID, s.ClientID, s.Reference, formatDate(s.StartsOn), formatDate(s.EndsOn), s.MonthlyFee,
		string(s.Status), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
		string(c.StoredStatus()),
	)
	if err != nil {
		return fmt.Errorf("saving contract: %w", err)
	}
	if err := upserted(result, domain.KindContract, s.ID, string(c.StoredStatus())); err != nil {
		return err
	}
	c.MarkSaved()
	return nil
}

func (r *ContractRepository) ListByClient(ctx context.Context, clientID string) ([]*domain.Contract, error) {
	db, err := tenancy.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE client_id = ? ORDER BY starts_on, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContract(row scanner) (*domain.Contract, error) {
	var s domain.ContractSnapshot
	var status, startsOn, endsOn, createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.ClientID, &s.Reference, &startsOn, &endsOn, &s.MonthlyFee,
		&status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning contract: %w", err)
	}
	s.Status = domain.ContractStatus(status)

	var err error
	if s.StartsOn, err = parseDate(startsOn); err != nil {
		return nil, err
	}
	if s.EndsOn, err = parseDate(endsOn); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return domain.RestoreContract(s)
}
