// Package persist is the backend collaborator of the synchronization engine:
// it receives operation-shaped writes against an entity's widget collections
// and serves full-entity state on initial load or RELOAD_DATA.
package persist

import (
	"context"
	"errors"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
)

// ErrEntityNotFound is returned by LoadEntity for an unknown entity.
var ErrEntityNotFound = errors.New("entity not found")

// Backend persists committed operations and serves canonical entity state.
type Backend interface {
	// Apply persists one committed operation. RELOAD_DATA is a no-op.
	Apply(ctx context.Context, o op.Operation) error

	// ApplyBatch persists several operations in one round trip, returning
	// one result per item. A failed item does not abort the rest.
	ApplyBatch(ctx context.Context, ops []op.Operation) []error

	// LoadEntity returns an entity's full slot contents.
	LoadEntity(ctx context.Context, entityID string) (types.SlotContents, error)

	// SaveEntity replaces an entity's contents wholesale.
	SaveEntity(ctx context.Context, entityID, entityType string, slots types.SlotContents) error

	// EntityType returns the entity's configured type (e.g. "page").
	EntityType(ctx context.Context, entityID string) (string, error)
}
