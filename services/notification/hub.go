// Package notification is the realtime fanout layer: a presence registry,
// job-scoped groups and best-effort event delivery. Delivery is at most
// once with no queuing or retry; sending to an absent user is a no-op.
package notification

import (
	"sync"

	"go.uber.org/zap"

	"servifix/models"
)

// Sender is one live outbound connection. The websocket transport
// implements it; tests substitute an in-memory recorder.
type Sender interface {
	Send(event models.NotificationEvent) error
	Close() error
}

// Fanout is the delivery surface the domain services depend on.
type Fanout interface {
	SendToUser(userID string, event models.NotificationEvent)
	SendToGroup(groupKey string, event models.NotificationEvent)
	JoinGroup(groupKey, userID string)
	LeaveGroup(groupKey, userID string)
}

// JobGroup returns the group key for one job's participants.
func JobGroup(jobID string) string { return "job:" + jobID }

// Hub owns the presence registry, the live senders and group membership.
// All mutation happens under one mutex; sends copy the targets first so a
// slow socket never holds the lock.
type Hub struct {
	registry PresenceRegistry

	mu      sync.RWMutex
	senders map[string]Sender              // connID -> sender
	groups  map[string]map[string]struct{} // groupKey -> userIDs
}

// NewHub builds a hub over the given presence registry.
func NewHub(registry PresenceRegistry) *Hub {
	return &Hub{
		registry: registry,
		senders:  make(map[string]Sender),
		groups:   make(map[string]map[string]struct{}),
	}
}

// Register binds a user's fresh connection, closing any previous one.
func (h *Hub) Register(userID, connID string, sender Sender) {
	h.mu.Lock()
	if old, ok := h.registry.Get(userID); ok && old != connID {
		if s, live := h.senders[old]; live {
			_ = s.Close()
			delete(h.senders, old)
		}
	}
	h.senders[connID] = sender
	h.mu.Unlock()

	h.registry.Set(userID, connID)
	zap.L().Debug("ws register", zap.String("user_id", userID), zap.String("conn_id", connID))
}

// Unregister drops the connection if it is still the user's current one.
func (h *Hub) Unregister(userID, connID string) {
	h.mu.Lock()
	if s, ok := h.senders[connID]; ok {
		_ = s.Close()
		delete(h.senders, connID)
	}
	h.mu.Unlock()

	h.registry.Delete(userID, connID)
	zap.L().Debug("ws unregister", zap.String("user_id", userID), zap.String("conn_id", connID))
}

// SendToUser delivers one event to a user's live connection. Absent or
// failing recipients are skipped silently; that is the intended semantic,
// not an error.
func (h *Hub) SendToUser(userID string, event models.NotificationEvent) {
	connID, ok := h.registry.Get(userID)
	if !ok {
		return
	}

	h.mu.RLock()
	sender, live := h.senders[connID]
	h.mu.RUnlock()
	if !live {
		return
	}

	if err := sender.Send(event); err != nil {
		zap.L().Warn("ws send failed, dropping connection",
			zap.String("user_id", userID), zap.Error(err))
		h.Unregister(userID, connID)
	}
}

// SendToGroup delivers one event to every member currently in the group.
func (h *Hub) SendToGroup(groupKey string, event models.NotificationEvent) {
	h.mu.RLock()
	members := make([]string, 0, len(h.groups[groupKey]))
	for userID := range h.groups[groupKey] {
		members = append(members, userID)
	}
	h.mu.RUnlock()

	for _, userID := range members {
		h.SendToUser(userID, event)
	}
}

// JoinGroup adds a user to a group. Joining is an explicit caller action,
// never automatic.
func (h *Hub) JoinGroup(groupKey, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[groupKey] == nil {
		h.groups[groupKey] = make(map[string]struct{})
	}
	h.groups[groupKey][userID] = struct{}{}
}

// LeaveGroup removes a user from a group.
func (h *Hub) LeaveGroup(groupKey, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[groupKey]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.groups, groupKey)
		}
	}
}
