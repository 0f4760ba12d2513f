package tenant

import (
	"sync"

	"github.com/google/uuid"
)

// Change is the workspace-changed notification. Subscribers must treat it as
// a mandatory refetch signal.
type Change struct {
	PrincipalID uuid.UUID
	Old         uuid.UUID
	New         uuid.UUID
}

// Notifier fans a Change out to every subscriber. Delivery is best-effort:
// a subscriber with a full buffer is skipped rather than blocking the switch.
type Notifier struct {
	mu   sync.RWMutex
	subs map[uint64]chan Change
	next uint64
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uint64]chan Change)}
}

// Subscribe registers a listener. The returned cancel func removes it and
// closes the channel.
func (n *Notifier) Subscribe(buffer int) (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan Change, buffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if ch, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (n *Notifier) Publish(c Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
			// Subscriber buffer full, skip
		}
	}
}
