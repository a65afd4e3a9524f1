// Package redis caches tenant directory lookups in Redis so that host
// resolution does not hit the catalog on every request.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neomorfeo/serviq/internal/domain"
)

const (
	keyPrefix = "serviq:tenant:subdomain:"

	// generationPrefix keys a counter bumped by every Invalidate. Read-through
	// writes watch it so a lookup that raced an invalidation never caches.
	generationPrefix = "serviq:tenant:gen:"
	generationTTL    = time.Hour
)

var (
	_ domain.TenantDirectory = (*Directory)(nil)
	_ domain.TenantCache     = (*Directory)(nil)
)

// NewClient connects to the Redis server at url and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// cachedTenant is the JSON shape stored per subdomain.
type cachedTenant struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Subdomain  string              `json:"subdomain"`
	StorageRef string              `json:"storage_ref"`
	Plan       string              `json:"plan"`
	Status     domain.TenantStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Directory is a read-through cache in front of another TenantDirectory.
// Only found tenants are cached; a Redis failure falls back to the source.
type Directory struct {
	client *redis.Client
	source domain.TenantDirectory
	ttl    time.Duration
}

// NewDirectory caches lookups against source for ttl.
func NewDirectory(client *redis.Client, source domain.TenantDirectory, ttl time.Duration) *Directory {
	return &Directory{client: client, source: source, ttl: ttl}
}

func (d *Directory) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	key := keyPrefix + subdomain

	raw, err := d.client.Get(ctx, key).Bytes()
	if err == nil {
		if t, decodeErr := decode(raw); decodeErr == nil {
			return t, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var (
		tenant    *domain.Tenant
		sourceErr error
	)
	err = d.client.Watch(ctx, func(tx *redis.Tx) error {
		tenant, sourceErr = d.source.GetBySubdomain(ctx, subdomain)
		if sourceErr != nil {
			return sourceErr
		}
		raw, err := encode(tenant)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, d.ttl)
			return nil
		})
		return err
	}, generationPrefix+subdomain)

	switch {
	case sourceErr != nil:
		return nil, sourceErr
	case tenant != nil:
		// Cached, or the write was dropped (redis.TxFailedErr after a
		// concurrent Invalidate, or a Redis failure). The source answer stands.
		return tenant, nil
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	}
	// Redis failed before the source was consulted.
	return d.source.GetBySubdomain(ctx, subdomain)
}

// Invalidate forgets the cached entry for subdomain and aborts any
// read-through write still in flight for it.
func (d *Directory) Invalidate(ctx context.Context, subdomain string) error {
	gen := generationPrefix + subdomain
	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+subdomain)
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidating %s: %w", subdomain, err)
	}
	return nil
}

func encode(t *domain.Tenant) ([]byte, error) {
	s := t.Snapshot()
	return json.Marshal(cachedTenant{
		ID:         s.ID,
		Name:       s.Name,
		Subdomain:  s.Subdomain,
		StorageRef: s.StorageRef,
		Plan:       s.Plan,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	})
}

func decode(raw []byte) (*domain.Tenant, error) {
	var c cachedTenant
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return domain.RestoreTenant(domain.TenantSnapshot{
		ID:         c.ID,
		Name:       c.Name,
		Subdomain:  c.Subdomain,
		StorageRef: c.StorageRef,
		Plan:       c.Plan,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	})
}
