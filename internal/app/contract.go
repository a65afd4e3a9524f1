package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/serviq/internal/domain"
)

// ContractService manages maintenance contracts of the bound tenant.
type ContractService struct {
	repo      domain.ContractRepository
	clients   domain.ClientRepository
	publisher domain.EventPublisher
	resolver  domain.ActionResolver[domain.ContractStatus]
	opts      options
}

func NewContractService(repo domain.ContractRepository, clients domain.ClientRepository, publisher domain.EventPublisher, resolver domain.ActionResolver[domain.ContractStatus], opts ...Option) *ContractService {
	return &ContractService{repo: repo, clients: clients, publisher: publisher, resolver: resolver, opts: buildOptions(opts)}
}

// NewContract holds the attributes of a contract to draft.
type NewContract struct {
	ClientID   string
	Reference  string
	StartsOn   time.Time
	EndsOn     time.Time
	MonthlyFee int64
}

// Draft creates a contract for an active client.
func (s *ContractService) Draft(ctx context.Context, in NewContract) (*domain.Contract, error) {
	client, err := s.clients.Find(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Status() != domain.ClientActive {
		return nil, &domain.InvariantError{
			Kind:    domain.KindContract,
			Message: fmt.Sprintf("client %s is %s", client.ID(), client.Status()),
		}
	}

	c, err := domain.NewContract(s.repo.NextIdentity(), in.ClientID, in.Reference, in.StartsOn, in.EndsOn, in.MonthlyFee, s.opts.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving contract: %w", err)
	}
	return c, publishScoped(ctx, s.publisher, c)
}

func (s *ContractService) Get(ctx context.Context, id string) (*domain.Contract, error) {
	return s.repo.Find(ctx, id)
}

func (s *ContractService) ListByClient(ctx context.Context, clientID string) ([]*domain.Contract, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// Transition applies a named action. Terminate requires reason; expire
// requires the end date to have been reached.
func (s *ContractService) Transition(ctx context.Context, id string, action domain.Action, reason string) (*domain.Contract, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	dst, err := s.resolver.Resolve(ctx, c.Status(), action)
	if err != nil {
		return nil, withEntityID(err, c.ID())
	}

	now := s.opts.now()
	switch dst {
	case domain.ContractTerminated:
		_, err = c.Terminate(reason, now)
	case domain.ContractExpired:
		_, err = c.Expire(now)
	default:
		_, err = c.TransitionTo(dst, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving contract: %w", err)
	}
	return c, publishScoped(ctx, s.publisher, c)
}
