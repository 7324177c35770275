package persist

import (
	"context"
	"errors"
	"sync"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/types"
)

// MemoryBackend implements Backend on an in-process store. Used in tests and
// for running without a database; FailWith injects write failures to exercise
// the divergence policy.
type MemoryBackend struct {
	mu      sync.Mutex
	store   *store.Store
	typesBy map[string]string
	failErr error
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		store:   store.New(),
		typesBy: make(map[string]string),
	}
}

// FailWith makes every subsequent write return err. Pass nil to heal.
func (b *MemoryBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

func (b *MemoryBackend) Apply(_ context.Context, o op.Operation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(o)
}

func (b *MemoryBackend) applyLocked(o op.Operation) error {
	if b.failErr != nil {
		return b.failErr
	}
	if o.Kind == op.KindReloadData {
		return nil
	}
	_, err := b.store.Apply(o)
	if errors.Is(err, op.ErrNotFound) {
		return nil // idempotent, matches the SQLite backend
	}
	return err
}

func (b *MemoryBackend) ApplyBatch(_ context.Context, ops []op.Operation) []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	errs := make([]error, len(ops))
	for i, o := range ops {
		errs[i] = b.applyLocked(o)
	}
	return errs
}

func (b *MemoryBackend) LoadEntity(_ context.Context, entityID string) (types.SlotContents, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	slots, ok := b.store.Snapshot(entityID)
	if !ok {
		return nil, ErrEntityNotFound
	}
	return slots, nil
}

func (b *MemoryBackend) SaveEntity(_ context.Context, entityID, entityType string, slots types.SlotContents) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.store.SeedEntity(entityID, slots)
	b.typesBy[entityID] = entityType
	return nil
}

func (b *MemoryBackend) EntityType(_ context.Context, entityID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.typesBy[entityID]
	if !ok {
		return "", ErrEntityNotFound
	}
	return t, nil
}
