//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"arstate-chat/domain"
	"context"
	"reflect"
)

// Subscription is a live feed handle. Cancel stops delivery, is safe to
// call multiple times, and guarantees no callback runs after it returns.
type Subscription interface {
	Cancel()
}

// SnapshotFunc receives the full current log on every remote change.
// Delivered slices are unordered; consumers re-sort by CreatedAt.
type SnapshotFunc func(messages []domain.Message)

// RealtimeLog is the remote ordered-log store: an append-only,
// multi-writer message log keyed by conversation. Appending to a key
// that has never been written creates the log implicitly.
type RealtimeLog interface {
	Append(ctx context.Context, key domain.ConversationKey, out domain.Outgoing) (domain.Message, error)
	Snapshot(key domain.ConversationKey) ([]domain.Message, error)
	Subscribe(ctx context.Context, key domain.ConversationKey, onSnapshot SnapshotFunc) (Subscription, error)
	UpdateStatus(ctx context.Context, key domain.ConversationKey, ids []string, status domain.Status) error
}

// ObjectStore uploads opaque bytes and returns a public reference.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

// Assistant streams a completion for a prompt. The sequence of chunks is
// finite and single-shot; implementations must reach the end of the
// stream even on provider failure (degrading to a fallback fragment).
type Assistant interface {
	StreamCompletion(ctx context.Context, prompt string, onChunk func(text string)) error
}

// Profiles is the identity provider. Username uniqueness and account
// lifecycle live behind this boundary, not in the engine.
type Profiles interface {
	FindByID(ctx context.Context, id string) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
}

// StreamSink consumes transient stream events from the assistant bus.
type StreamSink func(e domain.StreamEvent)

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
