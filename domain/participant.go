// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is the identity attached to every message.
// The ID is immutable once assigned; the display name may change
// (global uniqueness is enforced by the profile provider).
type Participant struct {
	ID     string
	Name   string
	Avatar string
	Guest  bool
}

// assistantID is the reserved participant id for assistant replies.
// Regular participants can never obtain it because profile ids are UUIDs.
const assistantID = "ai-assistant"

// Assistant returns the distinguished identity used as the sender of
// assistant-generated messages.
func Assistant() Participant {
	return Participant{
		ID:     assistantID,
		Name:   "Arstate Assistant",
		Avatar: "https://i.pravatar.cc/40?u=" + assistantID,
		Guest:  true,
	}
}

// IsAssistant reports whether p is the assistant identity.
func (p Participant) IsAssistant() bool {
	return p.ID == assistantID
}
