package core

import "sync"

// SubscriptionRegistry is the topic -> ordered handler list shared state of
// one adapter. Guarded by a mutex because adapter delivery loops run on
// their own goroutines.
type SubscriptionRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewSubscriptionRegistry returns an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{handlers: make(map[string][]EventHandler)}
}

// Add appends a handler to a topic, filling option defaults. It reports
// whether this is the first handler for the topic, i.e. whether the adapter
// must open the transport-level subscription.
func (r *SubscriptionRegistry) Add(topic string, h EventHandler) (first bool) {
	h.Options = h.Options.withDefaults()
	r.mu.Lock()
	defer r.mu.Unlock()
	first = len(r.handlers[topic]) == 0
	r.handlers[topic] = append(r.handlers[topic], h)
	return first
}

// Remove deletes all handlers for (topic, eventType). It reports whether any
// handler was removed and whether the topic is now empty, i.e. whether the
// adapter should release the transport subscription.
func (r *SubscriptionRegistry) Remove(topic, eventType string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.handlers[topic]
	kept := existing[:0]
	for _, h := range existing {
		if h.EventType == eventType {
			removed = true
			continue
		}
		kept = append(kept, h)
	}
	if !removed {
		return false, false
	}
	if len(kept) == 0 {
		delete(r.handlers, topic)
		return true, true
	}
	r.handlers[topic] = kept
	return true, false
}

// HandlersFor returns a copy of the handler list for a topic. Delivery loops
// iterate the copy so handlers registered mid-delivery take effect on the
// next message.
func (r *SubscriptionRegistry) HandlersFor(topic string) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	existing := r.handlers[topic]
	if len(existing) == 0 {
		return nil
	}
	out := make([]EventHandler, len(existing))
	copy(out, existing)
	return out
}

// Snapshot returns a copy of the whole registry, never the live structure.
func (r *SubscriptionRegistry) Snapshot() map[string][]EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]EventHandler, len(r.handlers))
	for topic, hs := range r.handlers {
		cp := make([]EventHandler, len(hs))
		copy(cp, hs)
		out[topic] = cp
	}
	return out
}
