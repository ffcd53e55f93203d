package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub is the in-memory broadcast registry: group -> connection id -> client,
// plus the reverse index used to drop a closing connection from every group.
type Hub struct {
	mu          sync.RWMutex
	groups      map[string]map[string]*Client
	memberships map[string]map[string]struct{}
}

// NewHub creates an empty registry
func NewHub() *Hub {
	return &Hub{
		groups:      make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds a client to a group. Subscribing twice is a no-op.
func (h *Hub) Subscribe(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[c.ID] = c

	joined, ok := h.memberships[c.ID]
	if !ok {
		joined = make(map[string]struct{})
		h.memberships[c.ID] = joined
	}
	joined[group] = struct{}{}

	log.Printf("✅ Connection %s (user %d) joined %s (members: %d)", c.ID, c.UserID, group, len(members))
}

// Unsubscribe removes a client from a group; unknown pairs are ignored
func (h *Hub) Unsubscribe(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(group, c.ID)
}

// UnsubscribeAll removes a client from every group it joined
func (h *Hub) UnsubscribeAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for group := range h.memberships[c.ID] {
		h.removeLocked(group, c.ID)
	}
	delete(h.memberships, c.ID)
}

func (h *Hub) removeLocked(group, connID string) {
	if members, ok := h.groups[group]; ok {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			log.Printf("❌ Connection %s left %s", connID, group)
		}
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	if joined, ok := h.memberships[connID]; ok {
		delete(joined, group)
		if len(joined) == 0 {
			delete(h.memberships, connID)
		}
	}
}

// Publish serializes event once and delivers it to every local subscriber
func (h *Hub) Publish(ctx context.Context, group string, event any) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	h.deliver(group, data, originFrom(ctx))
	return nil
}

// deliver enqueues data for a snapshot of the group's subscribers. A
// subscriber whose buffer is full misses the event and is closed.
func (h *Hub) deliver(group string, data []byte, origin string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[group]))
	for _, c := range h.groups[group] {
		if !EchoToSelf && c.ID == origin {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Enqueue(data) {
			log.Printf("⚠️  Dropping slow connection %s in %s", c.ID, group)
			c.Close()
		}
	}
}

// GroupSize returns the number of local subscribers of a group
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func encode(event any) ([]byte, error) {
	switch v := event.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
