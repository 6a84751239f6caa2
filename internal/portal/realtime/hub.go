// Package realtime fan-outs portal events to authorized live subscribers.
//
// Subscribers attach with the set of authorization scopes their session
// grants; publishers address events to scopes. An event reaches a subscriber
// when at least one published scope matches one subscribed scope.
package realtime

import (
	"context"
	"sync"
	"time"
)

// Scope name builders. Scopes are plain strings so the hub stays agnostic of
// the account model.
const (
	scopeRolePrefix    = "role:"
	scopeUnitPrefix    = "unit:"
	scopeAccountPrefix = "account:"
)

func RoleScope(role string) string         { return scopeRolePrefix + role }
func UnitScope(unitID string) string       { return scopeUnitPrefix + unitID }
func AccountScope(accountID string) string { return scopeAccountPrefix + accountID }

// Event is a single realtime message.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster is the publishing side of the hub. Services depend on this
// interface so tests can substitute a recorder and wiring stays optional.
type Broadcaster interface {
	Publish(scopes []string, evt Event)
}

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish([]string, Event) {}

type subscriber struct {
	scopes map[string]struct{}
	ch     chan Event
}

// Hub fan-outs events to all subscribers whose scopes intersect the
// published scopes.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber for the given scopes and returns the
// channel events arrive on. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, scopes []string) <-chan Event {
	sub := &subscriber{
		scopes: make(map[string]struct{}, len(scopes)),
		ch:     make(chan Event, 16),
	}
	for _, s := range scopes {
		sub.scopes[s] = struct{}{}
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Publish delivers evt to every subscriber holding at least one of the given
// scopes. Delivery never blocks; slow subscribers lose events.
func (h *Hub) Publish(scopes []string, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.matches(scopes) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking publishers.
		}
	}
}

// Subscribers reports the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (s *subscriber) matches(scopes []string) bool {
	for _, sc := range scopes {
		if _, ok := s.scopes[sc]; ok {
			return true
		}
	}
	return false
}
