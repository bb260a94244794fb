// Package realtime fans service events out to connected clients over
// WebSocket. The hub keeps per-room and per-match subscriber sets plus
// a presence registry of which members are currently connected.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is one real-time message sent to clients.
type Event struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is a single connection's outbound queue. The gateway drains it
// into the WebSocket write pump.
type Client chan []byte

type clientInfo struct {
	memberID    string
	displayName string
}

// Hub manages room and match subscriber sets.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[Client]clientInfo
	matches map[string]map[Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[Client]clientInfo),
		matches: make(map[string]map[Client]bool),
	}
}

// SubscribeRoom adds a client to a room channel and announces the
// updated presence set.
func (h *Hub) SubscribeRoom(roomID string, client Client, memberID, displayName string) {
	h.mu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[Client]clientInfo)
	}
	h.rooms[roomID][client] = clientInfo{memberID: memberID, displayName: displayName}
	h.mu.Unlock()

	h.publishPresence(roomID)
}

// UnsubscribeRoom removes a client from a room channel. The client
// channel is NOT closed here; the gateway owns the connection lifetime.
func (h *Hub) UnsubscribeRoom(roomID string, client Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	h.publishPresence(roomID)
}

// SubscribeMatch adds a client to a match channel.
func (h *Hub) SubscribeMatch(matchID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.matches[matchID]; !ok {
		h.matches[matchID] = make(map[Client]bool)
	}
	h.matches[matchID][client] = true
}

// UnsubscribeMatch removes a client from a match channel.
func (h *Hub) UnsubscribeMatch(matchID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.matches[matchID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.matches, matchID)
		}
	}
}

// PublishRoomUpdate broadcasts an event to all room subscribers.
func (h *Hub) PublishRoomUpdate(roomID, event string, payload map[string]any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcast(clientSet(h.rooms[roomID]), Event{Channel: "room:" + roomID, Type: event, Payload: payload})
}

// PublishMatchState broadcasts an event to all match subscribers.
func (h *Hub) PublishMatchState(matchID, event string, payload map[string]any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcast(h.matches[matchID], Event{Channel: "match:" + matchID, Type: event, Payload: payload})
}

// PresenceEntry is one connected member in a room's presence set.
type PresenceEntry struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
}

// RoomPresence returns the distinct members currently connected to a
// room channel.
func (h *Hub) RoomPresence(roomID string) []PresenceEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	entries := []PresenceEntry{}
	for _, info := range h.rooms[roomID] {
		if info.memberID == "" || seen[info.memberID] {
			continue
		}
		seen[info.memberID] = true
		entries = append(entries, PresenceEntry{MemberID: info.memberID, DisplayName: info.displayName})
	}
	return entries
}

func (h *Hub) publishPresence(roomID string) {
	entries := h.RoomPresence(roomID)
	h.PublishRoomUpdate(roomID, "presence.updated", map[string]any{
		"roomId":  roomID,
		"members": entries,
	})
}

// broadcast pushes an event to every client with a non-blocking send so
// a slow reader never stalls the hub.
func (h *Hub) broadcast(clients map[Client]bool, event Event) {
	if len(clients) == 0 {
		return
	}
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal event %q: %v", event.Type, err)
		return
	}
	for client := range clients {
		select {
		case client <- message:
		default:
			// Queue full; the gateway's write pump cleans up dead clients.
		}
	}
}

func clientSet(clients map[Client]clientInfo) map[Client]bool {
	if clients == nil {
		return nil
	}
	set := make(map[Client]bool, len(clients))
	for client := range clients {
		set[client] = true
	}
	return set
}
