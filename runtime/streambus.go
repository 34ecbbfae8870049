// Package runtime hosts the live parts of the engine: the conversation
// feed, the read-receipt reconciler, and the assistant stream bus. It
// orchestrates without containing domain rules.
package runtime

import (
	"arstate-chat/contract"
	"arstate-chat/domain"
	"log/slog"
	"strings"
	"sync"
)

// StreamBus is the in-process pub/sub channel for transient assistant
// tokens. It owns a single stream session at a time: a Start while a
// session is active implicitly ends the prior one. Nothing that flows
// through here is persisted or shared across processes.
//
// Broadcast is synchronous and in publish order; late subscribers get
// no replay and see only an empty state until the next chunk.
//
// TODO: key the accumulator by conversation once two conversations can
// stream at the same time.
type StreamBus struct {
	mu          sync.Mutex
	log         *slog.Logger
	subscribers []busSubscriber
	nextID      int
	active      bool
	accumulated strings.Builder
}

type busSubscriber struct {
	id   int
	sink contract.StreamSink
}

func NewStreamBus(log *slog.Logger) *StreamBus {
	return &StreamBus{log: log}
}

// Subscribe registers a sink and returns its unsubscribe function, safe
// to call multiple times.
func (b *StreamBus) Subscribe(sink contract.StreamSink) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subscribers = append(b.subscribers, busSubscriber{id: id, sink: sink})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish advances the session state machine and broadcasts.
//   - Start resets the accumulator; subscribers see "streaming began".
//   - Chunk appends text; subscribers see the new accumulated text.
//   - End clears the accumulator; subscribers see "streaming ended".
func (b *StreamBus) Publish(phase domain.StreamPhase, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch phase {
	case domain.PhaseStart:
		if b.active {
			b.log.Debug("stream started while another session active, ending prior session")
			b.broadcast(domain.StreamEvent{Phase: domain.PhaseEnd})
		}
		b.active = true
		b.accumulated.Reset()
		b.broadcast(domain.StreamEvent{Phase: domain.PhaseStart})
	case domain.PhaseChunk:
		if !b.active {
			b.log.Debug("chunk outside a stream session, dropping")
			return
		}
		b.accumulated.WriteString(text)
		b.broadcast(domain.StreamEvent{Phase: domain.PhaseChunk, Text: b.accumulated.String()})
	case domain.PhaseEnd:
		if !b.active {
			return
		}
		b.active = false
		b.accumulated.Reset()
		b.broadcast(domain.StreamEvent{Phase: domain.PhaseEnd})
	}
}

// broadcast runs under b.mu, which keeps publish order intact.
func (b *StreamBus) broadcast(e domain.StreamEvent) {
	for _, s := range b.subscribers {
		s.sink(e)
	}
}
