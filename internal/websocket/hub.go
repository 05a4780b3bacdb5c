package websocket

import (
	"github.com/bybo/bybo-be/internal/models"
	"github.com/rs/zerolog/log"
)

type topicMessage struct {
	topic   string
	payload []byte
}

// Hub maintains the set of active clients and fans out messages per listing.
// All state is owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of listing IDs to the set of clients watching it.
	subscriptions map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	publish    chan topicMessage
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan topicMessage, 64),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			if client.ListingID != "" {
				h.addSubscription(client, client.ListingID)
			}
			log.Debug().Int("total_clients", len(h.clients)).Str("listing_id", client.ListingID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Debug().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			for client := range h.subscriptions[msg.topic] {
				select {
				case client.Send <- msg.payload:
				default:
					// Slow consumer; it will reconnect and refetch.
					h.drop(client)
				}
			}
		}
	}
}

// Subscribe registers a client. It reports false once the hub has stopped.
func (h *Hub) Subscribe(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastTo queues a message for every client subscribed to listingID.
// It never blocks the caller; messages are dropped if the hub is saturated.
func (h *Hub) BroadcastTo(listingID string, message []byte) {
	select {
	case h.publish <- topicMessage{topic: listingID, payload: message}:
	default:
		log.Warn().Str("listing_id", listingID).Msg("Websocket hub saturated, dropping message")
	}
}

// PublishAvailability pushes a listing's current availability to its watchers.
func (h *Hub) PublishAvailability(listingID string, availability models.Availability) {
	h.BroadcastTo(listingID, NewAvailabilityMessage(availability))
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeSubscription(client)
	close(client.Send)
}

func (h *Hub) addSubscription(client *Client, listingID string) {
	if h.subscriptions[listingID] == nil {
		h.subscriptions[listingID] = make(map[*Client]bool)
	}
	h.subscriptions[listingID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for listingID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, listingID)
			}
		}
	}
}
