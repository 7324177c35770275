// Package widgetpath maps (slotName, widgetId) pairs to composite path keys
// and provides the selection set backing multi-select and bulk operations.
package widgetpath

import (
	"fmt"
	"strings"
)

// Separator joins the slot name and widget id in a composite path.
// Slot names never contain "/"; widget ids are UUIDs.
const Separator = "/"

// Join builds the composite path for a widget instance.
func Join(slot, widgetID string) string {
	return slot + Separator + widgetID
}

// Split decomposes a composite path into slot name and widget id.
func Split(path string) (slot, widgetID string, err error) {
	i := strings.Index(path, Separator)
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("malformed widget path %q", path)
	}
	return path[:i], path[i+1:], nil
}

// GroupBySlot buckets widget ids by slot name. Malformed paths are skipped;
// the bulk-operation planners treat them as already-gone widgets.
func GroupBySlot(paths []string) map[string][]string {
	out := make(map[string][]string)
	for _, p := range paths {
		slot, id, err := Split(p)
		if err != nil {
			continue
		}
		out[slot] = append(out[slot], id)
	}
	return out
}
