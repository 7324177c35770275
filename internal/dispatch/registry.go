package dispatch

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
)

// changeBuffer is the per-subscriber channel depth. A slow consumer loses its
// oldest change rather than blocking commits; the full snapshot carried by
// every change makes the stream self-healing.
const changeBuffer = 16

// Change is delivered to every registered consumer after a commit. State is a
// deep copy of the whole store taken at commit time.
type Change struct {
	// Origin is the componentID whose publish caused the change. Consumers
	// with the same id never receive it.
	Origin string
	Op     op.Operation
	State  types.CanonicalState
}

// Registry tracks change subscribers keyed by componentID.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]chan Change
	log  zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		subs: make(map[string]chan Change),
		log:  log.With().Str("component", "registry").Logger(),
	}
}

// Subscribe registers componentID and returns its change channel. Registering
// an id twice replaces the earlier subscription and closes its channel.
func (r *Registry) Subscribe(componentID string) <-chan Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.subs[componentID]; ok {
		close(prev)
	}
	ch := make(chan Change, changeBuffer)
	r.subs[componentID] = ch
	return ch
}

// Unsubscribe removes componentID and closes its channel.
func (r *Registry) Unsubscribe(componentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subs[componentID]; ok {
		close(ch)
		delete(r.subs, componentID)
	}
}

// Len reports the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Notify delivers the change to every subscriber except its origin.
func (r *Registry) Notify(c Change) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, ch := range r.subs {
		if id == c.Origin {
			continue
		}
		select {
		case ch <- c:
		default:
			// Buffer full: drop the oldest change and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
			r.log.Warn().Str("subscriber", id).Msg("change buffer full, dropped oldest")
		}
	}
}
