// Package redis keeps cart sessions in Redis so several API replicas can
// share them.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/doce-emergencia/storefront/internal/domain/cart"
)

const (
	keyPrefix  = "doce:cart:"
	maxRetries = 8
)

// ErrConflict is returned when an update keeps losing the optimistic lock.
var ErrConflict = errors.New("cart updated concurrently, retries exhausted")

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on Redis. Carts are stored as JSON under
// one key each and expire ttl after the last write.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore returns a CartStore using client.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and connects.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func key(id string) string { return keyPrefix + id }

// Get returns the stored cart, or an empty one.
func (s *CartStore) Get(ctx context.Context, id string) (*cart.Cart, error) {
	return load(ctx, s.client, key(id))
}

// Update applies fn inside a WATCH/MULTI transaction, retrying when another
// writer touched the cart in between.
func (s *CartStore) Update(ctx context.Context, id string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	k := key(id)
	var result *cart.Cart
	txf := func(tx *redis.Tx) error {
		c, err := load(ctx, tx, k)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		var data []byte
		if !c.Empty() {
			if data, err = c.MarshalJSON(); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, k)
				return nil
			}
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = c
		return nil
	}

	for range maxRetries {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrConflict
}

// Delete drops the cart.
func (s *CartStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}

func load(ctx context.Context, c redis.Cmdable, k string) (*cart.Cart, error) {
	data, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	out := cart.New()
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}
