package models

import "time"

// ChatMessage is one immutable entry in a plan's chat channel. SenderName is
// a snapshot taken at send time. ImageData, when present, is a base64-encoded
// JPEG kept inline in the document.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	ImageData  string    `json:"imageData,omitempty"`
}

// ChatEvent is the frame pushed over chat websocket subscriptions.
type ChatEvent struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}
