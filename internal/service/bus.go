package service

import (
	"slices"
	"sync"

	"github.com/joeblew999/plat-river/internal/metrics"
)

// Event resources and actions published by RiverMap.
const (
	ResourceLayers    = "layers"
	ResourceView      = "view"
	ResourceSelection = "selection"
	ResourceBuffer    = "buffer"
	ResourceSlider    = "slider"

	ActionLoaded  = "loaded"
	ActionFailed  = "failed"
	ActionFitted  = "fitted"
	ActionUpdated = "updated"
	ActionCleared = "cleared"
	ActionMounted = "mounted"
)

// Event represents a change to the river map state.
type Event struct {
	Resource   string // e.g. "selection"
	Action     string // "loaded", "updated", "cleared", ...
	ID         string // layer ID, when the event concerns one layer
	Generation int    // mount cycle that produced the event
}

// Topic is "resource/action", the name used for SSE custom events.
func (e Event) Topic() string { return e.Resource + "/" + e.Action }

// EventBus fans map events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// Subscription receives events on C until Close.
type Subscription struct {
	C <-chan Event

	bus       *EventBus
	ch        chan Event
	resources []string
	once      sync.Once
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: map[*Subscription]struct{}{}}
}

// Publish delivers e to every subscription interested in e.Resource.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if len(s.resources) > 0 && !slices.Contains(s.resources, e.Resource) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			metrics.EventsDroppedTotal.WithLabelValues(e.Resource).Inc()
		}
	}
}

// Subscribe opens a subscription to the named resources, or to every
// resource when none are given.
func (b *EventBus) Subscribe(resources ...string) *Subscription {
	ch := make(chan Event, 32)
	s := &Subscription{C: ch, bus: b, ch: ch, resources: resources}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Close detaches the subscription and closes C. It is safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

// Subscribers counts open subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// DefaultBus serves maps created without their own bus.
var DefaultBus = NewEventBus()
