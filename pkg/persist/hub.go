package persist

import (
	"strings"
	"sync"
)

// Listener receives the current value of a field after it changed.
type Listener func(value any)

// Hub fans change notifications out to the listeners of one resolution key.
// Listeners run synchronously on the goroutine that published.
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]Listener
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]Listener)}
}

// Subscribe registers fn for key and returns a function that cancels it.
func (h *Hub) Subscribe(key string, fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]Listener)
	}
	h.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
		})
	}
}

// Publish delivers value to every listener of key.
func (h *Hub) Publish(key string, value any) {
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.subs[key]))
	for _, fn := range h.subs[key] {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(value)
	}
}

// Keys returns the subscribed keys starting with prefix.
func (h *Hub) Keys(prefix string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var keys []string
	for k := range h.subs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, m := range h.subs {
		n += len(m)
	}
	return n
}

func metaKey(postID, field string) string {
	return "meta:" + postID + "/" + field
}

func attributeKey(instanceID, field string) string {
	return "attr:" + instanceID + "/" + field
}
