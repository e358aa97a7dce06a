// Package persist stores the durable projections of the storefront stores.
package persist

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Well-known projection keys.
const (
	CartKey     = "cart-storage"
	WishlistKey = "wishlist-storage"
)

// ErrNotFound is returned by Load when the key has never been saved or was
// deleted. Match it with errors.Is.
var ErrNotFound = apperrors.ErrNotFound

// Storage is a byte-oriented key-value store for serialized projections.
type Storage interface {
	// Load returns the bytes stored under key, or an error wrapping
	// ErrNotFound when absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the value stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// NotFound builds the error backends return for a missing key.
func NotFound(key string) error {
	return apperrors.NotFound("storage key", key)
}

// Memory is an in-process Storage. The zero value is ready to use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load implements Storage.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, NotFound(key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Save implements Storage.
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	v := make([]byte, len(data))
	copy(v, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = v
	return nil
}

// Delete implements Storage.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

type prefixed struct {
	next   Storage
	prefix string
}

// WithPrefix namespaces every key passed to s, e.g. "session:<id>:".
func WithPrefix(s Storage, prefix string) Storage {
	if p, ok := s.(*prefixed); ok {
		return &prefixed{next: p.next, prefix: p.prefix + prefix}
	}
	return &prefixed{next: s, prefix: prefix}
}

func (p *prefixed) Load(ctx context.Context, key string) ([]byte, error) {
	return p.next.Load(ctx, p.prefix+key)
}

func (p *prefixed) Save(ctx context.Context, key string, data []byte) error {
	return p.next.Save(ctx, p.prefix+key, data)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}

// SessionPrefix returns the key prefix used for one browser session.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
