// file: internal/realtime/events.go
// version: 2.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/search"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventSearchProgress  EventType = "search.progress"
	EventSearchFinished  EventType = "search.finished"
	EventSearchCancelled EventType = "search.cancelled"
	EventSearchRegister  EventType = "search.registration"
	EventSessionStatus   EventType = "session.status"
	EventSystemStatus    EventType = "system.status"
)

// Event represents a real-time event to send to clients
type Event struct {
	Type      EventType              `json:"type"`
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID       string
	Channel  chan *Event
	Sessions map[string]bool // Search sessions this client is interested in
	mu       sync.RWMutex
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Channel:  make(chan *Event, 100),
		Sessions: make(map[string]bool),
	}
}

// Subscribe subscribes the client to a search session
func (c *Client) Subscribe(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sessions[sessionID] = true
	log.Printf("[DEBUG] Client %s subscribed to session %s", c.ID, sessionID)
}

// Unsubscribe unsubscribes the client from a search session
func (c *Client) Unsubscribe(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Sessions, sessionID)
	log.Printf("[DEBUG] Client %s unsubscribed from session %s", c.ID, sessionID)
}

// IsSubscribed checks if client is subscribed to a session
func (c *Client) IsSubscribed(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Sessions[sessionID]
}

func (c *Client) subscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Sessions)
}

// EventHub manages SSE connections and event distribution
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Client),
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[DEBUG] Client %s registered, total clients: %d", client.ID, len(h.clients))
}

// UnregisterClient removes a client
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("[DEBUG] Client %s unregistered, remaining clients: %d", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all subscribed clients
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, client := range h.clients {
		// Send to clients if:
		// 1. Event has no ID (system-wide events), OR
		// 2. Client has no subscriptions (wants all events), OR
		// 3. Client is subscribed to this specific session
		if event.ID == "" || client.subscriptions() == 0 || client.IsSubscribed(event.ID) {
			select {
			case client.Channel <- event:
				count++
			default:
				log.Printf("[WARN] Client %s channel full, dropping event", client.ID)
			}
		}
	}

	if count > 0 {
		log.Printf("[DEBUG] Broadcasted event %s to %d clients", event.Type, count)
	}
}

// PublishSearchEvent forwards a coordinator event of a session.
func (h *EventHub) PublishSearchEvent(sessionID string, ev search.Event) {
	event := &Event{
		ID:        sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"search_id":  ev.SearchID,
		},
	}
	switch ev.Kind {
	case search.EventProgress:
		event.Type = EventSearchProgress
		event.Data["message"] = ev.Progress.Text
		event.Data["current"] = ev.Progress.Position
		event.Data["total"] = ev.Progress.Max
		event.Data["percentage"] = calculatePercentage(ev.Progress.Position, ev.Progress.Max)
	case search.EventFinished:
		event.Type = EventSearchFinished
		event.Data["matched"] = ev.Result.IsMatch()
		if ev.Result != nil {
			event.Data["errors"] = ev.Result.ErrorText
		}
	case search.EventCancelled:
		event.Type = EventSearchCancelled
		event.Data["matched"] = ev.Result.IsMatch()
	}
	h.Broadcast(event)
}

// SendRegistrationRequest tells the clients of a session that an engine
// needs credentials before it can be searched.
func (h *EventHub) SendRegistrationRequest(sessionID string, req search.RegistrationRequest) {
	h.Broadcast(&Event{
		Type:      EventSearchRegister,
		ID:        sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"engine":     string(req.Engine),
			"name":       req.Name,
			"site_url":   req.SiteURL,
			"required":   req.Required,
		},
	})
}

// SendSessionStatus announces a session being created or removed.
func (h *EventHub) SendSessionStatus(sessionID, status string) {
	h.Broadcast(&Event{
		Type:      EventSessionStatus,
		ID:        sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"status":     status,
		},
	})
}

// SendSystemStatus sends a system status event
func (h *EventHub) SendSystemStatus(data map[string]interface{}) {
	event := &Event{
		Type:      EventSystemStatus,
		ID:        "",
		Timestamp: time.Now(),
		Data:      data,
	}
	h.Broadcast(event)
}

// GetClientCount returns the number of connected clients
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE handles Server-Sent Events connection
func (h *EventHub) HandleSSE(c *gin.Context) {
	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("X-Accel-Buffering", "no")

	// Create client
	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	client := NewClient(clientID)

	// Subscribe to a session if specified
	if sessionID := c.Query("session"); sessionID != "" {
		client.Subscribe(sessionID)
	}

	// Register client
	h.RegisterClient(client)
	defer h.UnregisterClient(clientID)

	// Send initial connection event
	initialEvent := &Event{
		Type:      "connection.established",
		ID:        "",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"client_id": clientID,
		},
	}

	if data, err := json.Marshal(initialEvent); err == nil {
		_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
		c.Writer.Flush()
	}

	// Keep connection alive and stream events
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			log.Printf("[DEBUG] Client %s connection closed", clientID)
			return
		case event := <-client.Channel:
			// Marshal event to JSON
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("[ERROR] marshaling event: %v", err)
				continue
			}

			// Write SSE format: data: {json}\n\n
			_, err = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
			if err != nil {
				log.Printf("[WARN] writing to client %s: %v", clientID, err)
				return
			}

			// Flush immediately
			c.Writer.Flush()
		case <-ticker.C:
			// Send heartbeat
			heartbeat := map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now(),
			}
			if data, err := json.Marshal(heartbeat); err == nil {
				_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
				c.Writer.Flush()
			}
		}
	}
}

// calculatePercentage calculates percentage with bounds checking
func calculatePercentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	percentage := (current * 100) / total
	if percentage > 100 {
		return 100
	}
	return percentage
}

// Global event hub instance
var GlobalHub *EventHub

// InitializeEventHub initializes the global event hub
func InitializeEventHub() {
	if GlobalHub != nil {
		log.Println("[WARN] event hub already initialized")
		return
	}
	GlobalHub = NewEventHub()
	log.Println("[INFO] Event hub initialized")
}
