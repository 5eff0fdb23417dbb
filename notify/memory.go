package notify

import "sync"

// InMemoryNotifier is a thread-safe in-process Notifier.
type InMemoryNotifier struct {
	mu       sync.RWMutex
	handlers []handlerEntry
	history  []Event
	maxHist  int
	nextID   int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewInMemoryNotifier creates an InMemoryNotifier with a 1000-event history cap.
func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{maxHist: 1000}
}

// Publish appends ev to the history and invokes every subscribed handler.
func (n *InMemoryNotifier) Publish(ev Event) {
	n.mu.Lock()
	n.history = append(n.history, ev)
	if len(n.history) > n.maxHist {
		n.history = n.history[len(n.history)-n.maxHist:]
	}

	// Collect handlers to invoke outside the lock.
	targets := make([]Handler, 0, len(n.handlers))
	for _, e := range n.handlers {
		targets = append(targets, e.handler)
	}
	n.mu.Unlock()

	for _, h := range targets {
		h(ev)
	}
}

// Subscribe registers a handler for all events. The returned function
// unsubscribes the handler.
func (n *InMemoryNotifier) Subscribe(handler Handler) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.handlers = append(n.handlers, handlerEntry{id: id, handler: handler})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		filtered := n.handlers[:0]
		for _, e := range n.handlers {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		n.handlers = filtered
	}
}

// History returns the most recent limit events in chronological order.
// A non-positive limit returns the full history.
func (n *InMemoryNotifier) History(limit int) []Event {
	n.mu.RLock()
	defer n.mu.RUnlock()

	start := 0
	if limit > 0 && len(n.history) > limit {
		start = len(n.history) - limit
	}
	out := make([]Event, len(n.history)-start)
	copy(out, n.history[start:])
	return out
}
