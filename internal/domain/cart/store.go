package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrInvalidID is returned for cart ids that are empty or malformed.
var ErrInvalidID = errors.New("invalid cart id")

const maxIDLength = 64

// NewID returns a fresh opaque cart id.
func NewID() string {
	return uuid.NewString()
}

// ValidateID checks that id is usable as a cart key: non-empty, at most 64
// bytes, and made of ASCII letters, digits, '-' or '_'.
func ValidateID(id string) error {
	if id == "" || len(id) > maxIDLength {
		return ErrInvalidID
	}
	for i := range len(id) {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ErrInvalidID
		}
	}
	return nil
}

// Store keeps carts between requests. A cart that was never saved, or has
// expired, reads as empty.
type Store interface {
	Get(ctx context.Context, id string) (*Cart, error)
	// Update applies fn to the stored cart atomically with respect to other
	// updates of the same id and persists the result unless fn fails.
	Update(ctx context.Context, id string, fn func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, id string) error
}

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	cart      *Cart
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Entries expire ttl after their last
// write; expired entries are swept lazily.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	carts     map[string]memoryEntry
	lastSweep time.Time
}

// NewMemoryStore returns a MemoryStore. A non-positive ttl keeps carts
// forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		carts: make(map[string]memoryEntry),
	}
}

// Get returns a copy of the stored cart.
func (s *MemoryStore) Get(_ context.Context, id string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(id), nil
}

// Update runs fn under the store lock.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.load(id)
	if err := fn(c); err != nil {
		return nil, err
	}
	if c.Empty() {
		delete(s.carts, id)
	} else {
		s.carts[id] = memoryEntry{cart: New(c.lines...), expiresAt: s.expiry()}
	}
	s.sweep()
	return c, nil
}

// Delete drops the cart.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, id)
	return nil
}

// Len returns the number of live carts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.carts)
}

// load must be called with s.mu held.
func (s *MemoryStore) load(id string) *Cart {
	e, ok := s.carts[id]
	if !ok {
		return New()
	}
	if s.expired(e) {
		delete(s.carts, id)
		return New()
	}
	return New(e.cart.lines...)
}

func (s *MemoryStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// sweep removes expired entries at most once per ttl. Must be called with
// s.mu held.
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.carts {
		if s.expired(e) {
			delete(s.carts, id)
		}
	}
}
