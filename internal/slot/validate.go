// Package slot validates proposed slot mutations against externally supplied
// slot configuration, and loads that configuration from YAML files.
package slot

import (
	"fmt"

	"github.com/pagegrid/pagegrid/internal/types"
)

// ViolationKind classifies a constraint violation.
type ViolationKind string

const (
	// TypeNotAllowed: the widget's type is not in the slot's allowed set.
	TypeNotAllowed ViolationKind = "TYPE_NOT_ALLOWED"
	// LimitReached: the slot already holds maxWidgets widgets.
	LimitReached ViolationKind = "LIMIT_REACHED"
	// RequiredSlotEmpty: a required slot holds no widgets. Advisory only,
	// reported at save-time and never blocking mid-edit states.
	RequiredSlotEmpty ViolationKind = "REQUIRED_SLOT_EMPTY"
)

// Violation is a failed constraint check.
type Violation struct {
	Kind ViolationKind
	Slot string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("slot %q: %s", v.Slot, v.Kind)
}

// Validate checks the proposed contents of one slot against its
// configuration. The proposed contents already include the widget being
// added. Returns nil when the mutation is acceptable.
//
// Only additions are validated this way: moves and removals never re-check
// type constraints, and RequiredSlotEmpty is not reported here.
func Validate(cfg types.SlotConfig, proposed []types.Widget) *Violation {
	if cfg.MaxWidgets != nil && len(proposed) > *cfg.MaxWidgets {
		return &Violation{Kind: LimitReached, Slot: cfg.Name}
	}
	for _, w := range proposed {
		if !cfg.AllowsType(w.Type) {
			return &Violation{Kind: TypeNotAllowed, Slot: cfg.Name}
		}
	}
	return nil
}

// CheckRequired reports advisory RequiredSlotEmpty violations for a whole
// entity at save-time.
func CheckRequired(cfgs []types.SlotConfig, slots types.SlotContents) []*Violation {
	var out []*Violation
	for _, cfg := range cfgs {
		if cfg.Required && len(slots[cfg.Name]) == 0 {
			out = append(out, &Violation{Kind: RequiredSlotEmpty, Slot: cfg.Name})
		}
	}
	return out
}
