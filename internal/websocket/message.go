package websocket

import (
	"encoding/json"

	"github.com/bybo/bybo-be/internal/models"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

const (
	ActionAvailability = "availability"
	ActionError        = "error"
)

// NewAvailabilityMessage encodes a listing's availability.
func NewAvailabilityMessage(availability models.Availability) []byte {
	return encode(Message{Action: ActionAvailability, Payload: availability})
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"message": msg}})
}

func encode(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		b, _ = json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": "encoding failed"}})
	}
	return b
}
