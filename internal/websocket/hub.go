package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/propertyhub/api/internal/model"
)

// Client is one WebSocket subscriber watching a single listing
type Client struct {
	ListingID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Hub fans listing status events out to subscribed connections
type Hub struct {
	// Clients grouped by listing ID
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	logger *slog.Logger
	mu     sync.RWMutex
}

// BroadcastMessage is a payload addressed to one listing's subscribers
type BroadcastMessage struct {
	ListingID string
	Message   []byte
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.ListingID] == nil {
				h.clients[client.ListingID] = make(map[*Client]struct{})
			}
			h.clients[client.ListingID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.String("listing_id", client.ListingID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.String("listing_id", client.ListingID))

		case msg := <-h.broadcast:
			// Send is only closed by unregister, so a slow consumer just
			// misses this event.
			h.mu.RLock()
			for client := range h.clients[msg.ListingID] {
				select {
				case client.Send <- msg.Message:
				default:
					h.logger.Warn("websocket client too slow, event dropped", slog.String("listing_id", msg.ListingID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop terminates Run
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.ListingID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.ListingID)
	}
}

// Subscribers returns how many clients watch a listing
func (h *Hub) Subscribers(listingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[listingID])
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishModelStatus pushes the listing's current pipeline state to its
// subscribers. It never blocks the caller.
func (h *Hub) PublishModelStatus(listing *model.Listing) {
	msg := model.WSModelStatusMessage{
		Type:       model.WSMessageTypeModelStatus,
		ListingID:  listing.ID,
		Status:     listing.Model3DStatus,
		RetryCount: listing.Model3DRetryCount,
	}
	if listing.Model3D != nil {
		msg.Model3D = *listing.Model3D
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal status message", slog.Any("error", err))
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{ListingID: listing.ID, Message: data}:
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping event", slog.String("listing_id", listing.ID))
	}
}

// HandleConnection serves one WebSocket connection until it closes
func (h *Hub) HandleConnection(c *websocket.Conn, listingID string) {
	client := &Client{
		ListingID: listingID,
		Conn:      c,
		Send:      make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", slog.Any("error", err))
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}
