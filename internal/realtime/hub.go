package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"auction-house/utils"
)

// EventType names a live item event
type EventType string

const (
	EventBidPlaced      EventType = "bid_placed"
	EventAuctionSettled EventType = "auction_settled"
)

// Event is pushed to every subscriber of an item
type Event struct {
	Type   EventType `json:"type"`
	ItemID string    `json:"item_id"`
	At     time.Time `json:"at"`
	Data   any       `json:"data,omitempty"`
}

// Hub fans item events out to the WebSocket clients watching that item.
// Publish never blocks: a client whose send buffer is full is disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // key: itemID
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Publish broadcasts ev to the subscribers of ev.ItemID
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		utils.Error("failed to encode live event", map[string]any{"item_id": ev.ItemID, "type": ev.Type, "error": err.Error()})
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[ev.ItemID] {
		if !c.enqueue(payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.Warn("dropping slow live client", map[string]any{"item_id": ev.ItemID, "client": c.id})
		h.unsubscribe(c)
		c.close()
	}
}

// Subscribers returns how many clients currently watch itemID
func (h *Hub) Subscribers(itemID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[itemID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}

func (h *Hub) subscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.itemID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.itemID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.itemID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.itemID)
	}
}
