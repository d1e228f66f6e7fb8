// Package nonce issues the strictly increasing per-key sequence numbers the
// exchange requires on every signed transaction.
package nonce

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotBootstrapped = errors.New("nonce manager not bootstrapped")
	ErrNoKeys          = errors.New("no signing keys configured")
)

// Key identifies one (account, signing key) nonce lane.
type Key struct {
	AccountIndex int64
	APIKeyIndex  uint8
}

// Issued is one reserved {key, nonce} pair. No two concurrent callers ever
// receive the same pair.
type Issued struct {
	Key   Key
	Nonce int64
}

// Source resolves the exchange's authoritative next nonce for a key.
type Source interface {
	NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error)
}

// Manager hands out nonces optimistically and rolls the counter back when a
// submission is confirmed never to have reached the exchange. Without the
// rollback every failed submission would burn a sequence number for good.
type Manager struct {
	mu       sync.Mutex
	keys     []Key
	counters map[Key]int64
	cursor   int
	ready    bool
}

func NewManager(keys []Key) *Manager {
	m := &Manager{
		keys:     append([]Key(nil), keys...),
		counters: make(map[Key]int64, len(keys)),
	}
	return m
}

// Bootstrap fetches the authoritative next nonce for every configured key.
// Next refuses to issue until this has succeeded once.
func (m *Manager) Bootstrap(ctx context.Context, src Source) error {
	m.mu.Lock()
	keys := append([]Key(nil), m.keys...)
	m.mu.Unlock()
	if len(keys) == 0 {
		return ErrNoKeys
	}
	fetched := make(map[Key]int64, len(keys))
	for _, key := range keys {
		next, err := src.NextNonce(ctx, key.AccountIndex, key.APIKeyIndex)
		if err != nil {
			return fmt.Errorf("fetch next nonce for key %d/%d: %w", key.AccountIndex, key.APIKeyIndex, err)
		}
		fetched[key] = next
	}
	m.mu.Lock()
	for key, next := range fetched {
		m.counters[key] = next
	}
	m.ready = true
	m.mu.Unlock()
	return nil
}

// Next reserves the next nonce on the next key in round-robin order and
// advances the counter unconditionally.
func (m *Manager) Next() (Issued, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Issued{}, ErrNotBootstrapped
	}
	if len(m.keys) == 0 {
		return Issued{}, ErrNoKeys
	}
	key := m.keys[m.cursor]
	m.cursor = (m.cursor + 1) % len(m.keys)
	nonce := m.counters[key]
	m.counters[key] = nonce + 1
	return Issued{Key: key, Nonce: nonce}, nil
}

// AcknowledgeFailure returns a reserved nonce to the pool after a submission
// is known not to have reached the exchange. Only the most recent issuance on
// the key can be reclaimed; if a later nonce has been handed out in the
// meantime the counter is left alone rather than reused out of order.
func (m *Manager) AcknowledgeFailure(iss Issued) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.counters[iss.Key]; ok && current == iss.Nonce+1 {
		m.counters[iss.Key] = iss.Nonce
	}
}

// Peek reports the nonce Next would return for a key, for diagnostics.
func (m *Manager) Peek(key Key) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[key]
	return v, ok
}
