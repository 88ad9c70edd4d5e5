package websocket

import (
	"log"
	"net/http"

	"flashoffers/internal/events"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub    *Hub
	cancel func()
}

// NewHandler starts the hub and bridges the domain event bus into it.
// Every event is fanned out to the venue room and, when it names an offer,
// the offer room.
func NewHandler(bus *events.Bus) *Handler {
	hub := NewHub()
	go hub.Run()

	h := &Handler{hub: hub}
	if bus != nil {
		ch, cancel := bus.Subscribe()
		h.cancel = cancel
		go h.pumpEvents(ch)
	}
	return h
}

func (h *Handler) pumpEvents(ch <-chan events.Event) {
	for event := range ch {
		msg := Message{
			Type:      string(event.Type),
			Timestamp: event.Timestamp.Unix(),
			Data:      eventData(event),
		}

		if !event.VenueID.IsZero() {
			h.hub.SendToRoom(VenueRoom(event.VenueID), msg)
		}
		if !event.OfferID.IsZero() {
			h.hub.SendToRoom(OfferRoom(event.OfferID), msg)
		}
	}
}

func eventData(event events.Event) map[string]interface{} {
	data := make(map[string]interface{}, len(event.Data)+3)
	for k, v := range event.Data {
		data[k] = v
	}
	if !event.OfferID.IsZero() {
		data["offer_id"] = event.OfferID.Hex()
	}
	if !event.VenueID.IsZero() {
		data["venue_id"] = event.VenueID.Hex()
	}
	if !event.ClaimID.IsZero() {
		data["claim_id"] = event.ClaimID.Hex()
	}
	return data
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var venueObjectID primitive.ObjectID
	if venueID, exists := c.Get("venue_id"); exists {
		if id, ok := venueID.(primitive.ObjectID); ok {
			venueObjectID = id
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID, venueObjectID)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}

// Close stops the event bridge. Connected clients drain on their own.
func (h *Handler) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}
