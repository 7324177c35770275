package op

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an operation that referenced an absent widget id.
// Dispatch treats it as an idempotent no-op everywhere; it never surfaces as
// a failure to callers.
var ErrNotFound = errors.New("widget not found")

// BadPayloadError reports an operation whose payload shape does not match
// its kind.
type BadPayloadError struct {
	Kind   Kind
	Reason string
}

func (e *BadPayloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// OutOfBoundsError reports a MOVE_WIDGET whose indices fall outside the
// slot's current bounds.
type OutOfBoundsError struct {
	Slot  string
	Index int
	Len   int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds for slot %q (len %d)", e.Index, e.Slot, e.Len)
}

// DuplicateIDError reports an ADD_WIDGET whose id already exists in the
// entity. Widget ids are unique per entity across all slots.
type DuplicateIDError struct {
	EntityID string
	WidgetID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("widget id %q already exists in entity %q", e.WidgetID, e.EntityID)
}
