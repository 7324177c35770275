package clipboard

import "errors"

// ErrEmpty is returned by Paste when the clipboard holds nothing.
var ErrEmpty = errors.New("clipboard is empty")

// Mode is the paste-mode state of one editing surface.
type Mode int

const (
	// Inactive: paste targets are hidden.
	Inactive Mode = iota
	// Armed: paste targets are shown and accept pastes.
	Armed
	// Paused: targets are hidden after Escape or a context menu, but the
	// clipboard entry survives; toggling off goes straight to Inactive.
	Paused
)

func (m Mode) String() string {
	switch m {
	case Inactive:
		return "inactive"
	case Armed:
		return "armed"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// PasteMode is the per-surface paste-mode state machine. Not safe for
// concurrent use; each surface owns its own.
type PasteMode struct {
	mode Mode
}

// NewPasteMode starts Inactive.
func NewPasteMode() *PasteMode { return &PasteMode{mode: Inactive} }

// Mode returns the current mode.
func (p *PasteMode) Mode() Mode { return p.mode }

// Arm shows paste targets. Only valid from Inactive; arming a paused surface
// requires an explicit Toggle through Inactive first.
func (p *PasteMode) Arm() bool {
	if p.mode != Inactive {
		return false
	}
	p.mode = Armed
	return true
}

// Escape hides paste targets without dropping the clipboard.
func (p *PasteMode) Escape() {
	if p.mode == Armed {
		p.mode = Paused
	}
}

// ContextMenu is the same pause as Escape: opening a menu mid-paste hides the
// targets.
func (p *PasteMode) ContextMenu() {
	p.Escape()
}

// PasteCompleted transitions after a landed paste: surfaces keeping the
// clipboard stay armed for repeated pastes, everyone else deactivates.
func (p *PasteMode) PasteCompleted(keepClipboard bool) {
	if p.mode != Armed {
		return
	}
	if keepClipboard {
		return
	}
	p.mode = Inactive
}

// Toggle flips the surface's paste mode: Inactive arms, anything else
// deactivates.
func (p *PasteMode) Toggle() Mode {
	switch p.mode {
	case Inactive:
		p.mode = Armed
	default:
		p.mode = Inactive
	}
	return p.mode
}
