package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/serviq/internal/domain"
)

// ClientService manages the clients of the tenant bound to the context.
type ClientService struct {
	repo      domain.ClientRepository
	publisher domain.EventPublisher
	resolver  domain.ActionResolver[domain.ClientStatus]
	opts      options
}

func NewClientService(repo domain.ClientRepository, publisher domain.EventPublisher, resolver domain.ActionResolver[domain.ClientStatus], opts ...Option) *ClientService {
	return &ClientService{repo: repo, publisher: publisher, resolver: resolver, opts: buildOptions(opts)}
}

// Register creates an active client.
func (s *ClientService) Register(ctx context.Context, name, taxID, email string) (*domain.Client, error) {
	c, err := domain.NewClient(s.repo.NextIdentity(), name, taxID, email, s.opts.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving client: %w", err)
	}
	return c, publishScoped(ctx, s.publisher, c)
}

func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	return s.repo.Find(ctx, id)
}

func (s *ClientService) List(ctx context.Context, page domain.Page) ([]*domain.Client, error) {
	return s.repo.List(ctx, page)
}

// Transition applies a named lifecycle action to a client.
func (s *ClientService) Transition(ctx context.Context, id string, action domain.Action) (*domain.Client, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	dst, err := s.resolver.Resolve(ctx, c.Status(), action)
	if err != nil {
		return nil, withEntityID(err, c.ID())
	}
	if _, err := c.TransitionTo(dst, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving client: %w", err)
	}
	return c, publishScoped(ctx, s.publisher, c)
}
