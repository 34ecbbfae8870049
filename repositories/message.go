//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/contract"
	"arstate-chat/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"
)

// IndexFunc is an optional hook invoked after each successful append,
// used to feed the search index. Failures are logged, never fatal.
type IndexFunc func(key domain.ConversationKey, m domain.Message) error

// MessageRepository persists conversation logs in BadgerDB and pushes
// live snapshots to subscribers, playing the role of the hosted
// realtime store.
type MessageRepository struct {
	db      *badger.DB
	log     *slog.Logger
	indexer IndexFunc
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// WithIndexer attaches a post-append hook. Not safe to call after the
// repository is shared across goroutines.
func (m *MessageRepository) WithIndexer(fn IndexFunc) *MessageRepository {
	m.indexer = fn
	return m
}

// diskMessage is the stored value. The message id lives in the key,
// mirroring how the hosted store keys each pushed record.
type diskMessage struct {
	SenderID     string        `json:"sender_id"`
	SenderName   string        `json:"sender_name"`
	SenderAvatar string        `json:"sender_avatar"`
	SenderGuest  bool          `json:"sender_guest"`
	Text         string        `json:"text,omitempty"`
	ImageRef     string        `json:"image_ref,omitempty"`
	At           int64         `json:"at"`
	Status       domain.Status `json:"status"`
}

// logPrefix returns the key prefix of one conversation's log.
func logPrefix(key domain.ConversationKey) []byte {
	return []byte(fmt.Sprintf("messages/%s/", key))
}

// messageKey formats the full key as "messages/{conversation}/{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     land on the same nanosecond.
func messageKey(key domain.ConversationKey, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("messages/%s/%019d:%s", key, at.UnixNano(), id))
}

// idFromKey recovers the store-assigned message id from a full key.
func idFromKey(k []byte) string {
	s := string(k)
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Append validates and persists one message. The store assigns the id
// and the server timestamp. Appending to a log that does not exist yet
// creates it; there is no separate conversation-creation step.
func (m *MessageRepository) Append(ctx context.Context, key domain.ConversationKey, out domain.Outgoing) (domain.Message, error) {
	if !out.HasContent() {
		return domain.Message{}, apperrors.ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Sender:    out.Sender,
		Text:      out.Text,
		ImageRef:  out.ImageRef,
		CreatedAt: time.Now().UTC(),
		Status:    domain.StatusSent,
	}
	value, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(key, msg.CreatedAt, msg.ID), value)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	if m.indexer != nil {
		if err := m.indexer(key, msg); err != nil {
			m.log.Warn("message indexing failed", "id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// Snapshot reads the full current log for key. Callers must not rely on
// the returned order; the live feed re-sorts by CreatedAt.
func (m *MessageRepository) Snapshot(key domain.ConversationKey) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := logPrefix(key)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := idFromKey(item.Key())
			err := item.Value(func(value []byte) error {
				var dm diskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return err
				}
				messages = append(messages, toMessage(id, dm))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return messages, nil
}

// UpdateStatus flips the status field of the identified messages in a
// single transaction. It is the only mutation of existing entries the
// engine ever performs.
func (m *MessageRepository) UpdateStatus(ctx context.Context, key domain.ConversationKey, ids []string, status domain.Status) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := logPrefix(key)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if _, ok := wanted[idFromKey(item.Key())]; !ok {
				continue
			}
			fullKey := item.KeyCopy(nil)
			var dm diskMessage
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			dm.Status = status
			value, err := json.Marshal(dm)
			if err != nil {
				return err
			}
			if err := txn.Set(fullKey, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Subscribe opens a live subscription on one conversation log. The
// first delivery happens before Subscribe returns, with the current
// snapshot (empty if the log does not exist); every change after that
// re-delivers the full log. Read errors are logged and the
// subscription stays open; the next change retries naturally.
//
// The watcher also matches a throwaway sentinel key, written until one
// write is observed. The initial snapshot is read by that observation,
// after registration, so an append landing while the watcher starts up
// cannot be missed.
func (m *MessageRepository) Subscribe(ctx context.Context, key domain.ConversationKey, onSnapshot contract.SnapshotFunc) (contract.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}

	ready := make(chan struct{})
	var once sync.Once
	sentinel := []byte("subscriptions/" + uuid.NewString())

	go func() {
		match := []pb.Match{{Prefix: logPrefix(key)}, {Prefix: sentinel}}
		err := m.db.Subscribe(subCtx, func(_ *badger.KVList) error {
			snapshot, err := m.Snapshot(key)
			if err != nil {
				m.log.Error("snapshot read failed, keeping subscription open", "key", key, "error", err)
				return nil
			}
			sub.deliver(snapshot, onSnapshot)
			once.Do(func() { close(ready) })
			return nil
		}, match)
		if err != nil && subCtx.Err() == nil {
			m.log.Error("log subscription terminated", "key", key, "error", err)
		}
	}()

	for registered := false; !registered; {
		err := m.db.Update(func(txn *badger.Txn) error {
			return txn.Set(sentinel, nil)
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		select {
		case <-ready:
			registered = true
		case <-subCtx.Done():
			cancel()
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, subCtx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sentinel)
	})
	if err != nil {
		m.log.Warn("subscription sentinel cleanup failed", "error", err)
	}

	return sub, nil
}

// subscription guards against late deliveries: the mutex is held while
// the callback runs, so once Cancel returns no invocation can follow,
// even one already in flight at the provider level.
type subscription struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
}

func (s *subscription) deliver(messages []domain.Message, onSnapshot contract.SnapshotFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	onSnapshot(messages)
}

// Cancel stops delivery. Safe to call multiple times.
func (s *subscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.cancel()
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		SenderID:     msg.Sender.ID,
		SenderName:   msg.Sender.Name,
		SenderAvatar: msg.Sender.Avatar,
		SenderGuest:  msg.Sender.Guest,
		Text:         msg.Text,
		ImageRef:     msg.ImageRef,
		At:           msg.CreatedAt.UnixNano(),
		Status:       msg.Status,
	}
}

func toMessage(id string, dm diskMessage) domain.Message {
	return domain.Message{
		ID: id,
		Sender: domain.Participant{
			ID:     dm.SenderID,
			Name:   dm.SenderName,
			Avatar: dm.SenderAvatar,
			Guest:  dm.SenderGuest,
		},
		Text:      dm.Text,
		ImageRef:  dm.ImageRef,
		CreatedAt: time.Unix(0, dm.At).UTC(),
		Status:    dm.Status,
	}
}
