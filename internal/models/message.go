package models

import "time"

// MaxMessageLength bounds the text of a direct message.
const MaxMessageLength = 140

// Message is a direct message between two users.
type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Text       string    `json:"text"`
	IsRead     bool      `json:"isRead"`
	Timestamp  time.Time `json:"timestamp"`
}
