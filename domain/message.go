// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// A message carries text, an image reference, or both; never neither.
package domain

import (
	"time"
)

// Status is the two-value read-state machine of a message.
// The only legal transition is Sent -> Read, and only the peer
// (never the author) performs it.
type Status string

const (
	StatusSent Status = "sent"
	StatusRead Status = "read"
)

// Message is one persisted entry of a conversation log.
// ID and CreatedAt are assigned by the store on append.
type Message struct {
	ID        string
	Sender    Participant
	Text      string
	ImageRef  string
	CreatedAt time.Time
	Status    Status
}

// Outgoing is a message as composed locally, before the store assigns
// its id and server timestamp.
type Outgoing struct {
	Sender   Participant
	Text     string
	ImageRef string
}

// HasContent reports whether the message carries anything at all.
// Empty messages must never reach the log.
func (o Outgoing) HasContent() bool {
	return o.Text != "" || o.ImageRef != ""
}
