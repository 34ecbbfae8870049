// Package projection builds local timelines from observed snapshots
// and stream events. Handles ordering and the streaming overlay.
// Does not emit events or interact with storage directly.
package projection

import (
	"arstate-chat/domain"
	"sync"
)

// streamCursor visually marks the provisional in-flight response.
const streamCursor = "▍"

// Entry is one rendered timeline row. A provisional entry represents
// the in-flight assistant response: it has no store id and disappears
// as soon as the persisted message lands in a snapshot.
type Entry struct {
	Message     domain.Message
	Provisional bool
}

// Timeline merges the persisted conversation log with the transient
// assistant stream into one ordered view. Snapshots arrive already
// sorted from the feed; the stream overlay contributes at most one
// trailing provisional entry while a session is active.
//
// A one-frame double render (provisional plus the freshly persisted
// reply) is acceptable; the next Entries call after the snapshot
// replaces, never duplicates.
type Timeline struct {
	mu        sync.Mutex
	Owner     string
	messages  []domain.Message
	streaming *string
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

// ApplySnapshot replaces the persisted base of the timeline.
func (t *Timeline) ApplySnapshot(messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages[:0:0], messages...)
}

// ApplyStream advances the overlay from a stream-bus event.
func (t *Timeline) ApplyStream(e domain.StreamEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Phase {
	case domain.PhaseStart:
		empty := ""
		t.streaming = &empty
	case domain.PhaseChunk:
		text := e.Text
		t.streaming = &text
	case domain.PhaseEnd:
		t.streaming = nil
	}
}

// Streaming reports the accumulated in-flight text, if any.
func (t *Timeline) Streaming() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streaming == nil {
		return "", false
	}
	return *t.streaming, true
}

// Entries renders the merged view: the sorted snapshot, then one
// provisional assistant entry while streaming is active.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := make([]Entry, 0, len(t.messages)+1)
	for _, m := range t.messages {
		entries = append(entries, Entry{Message: m})
	}
	if t.streaming != nil {
		entries = append(entries, Entry{
			Message: domain.Message{
				Sender: domain.Assistant(),
				Text:   *t.streaming + streamCursor,
			},
			Provisional: true,
		})
	}
	return entries
}
