package repositories

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/domain"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_And_Snapshot(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	key := domain.DeriveKey("alice", "bob")
	alice := domain.Participant{ID: "alice", Name: "Alice"}
	bob := domain.Participant{ID: "bob", Name: "Bob"}

	first, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: alice, Text: "hello"})
	req.NoError(err)
	req.NotEmpty(first.ID)
	req.Equal(domain.StatusSent, first.Status)
	req.False(first.CreatedAt.IsZero())

	second, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: bob, Text: "hi back"})
	req.NoError(err)
	req.NotEqual(first.ID, second.ID)

	messages, err := repository.Snapshot(key)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("hello", messages[0].Text)
	req.Equal(alice, messages[0].Sender)
	req.Equal("hi back", messages[1].Text)
}

func Test_Append_RejectsEmptyMessage(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	key := domain.DeriveKey("alice", "bob")

	_, err := repository.Append(context.Background(), key, domain.Outgoing{
		Sender: domain.Participant{ID: "alice"},
	})
	req.ErrorIs(err, apperrors.ErrEmptyMessage)

	messages, err := repository.Snapshot(key)
	req.NoError(err)
	req.Empty(messages)
}

func Test_Snapshot_UnknownLogIsEmpty(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	messages, err := repository.Snapshot(domain.DeriveKey("nobody", "noone"))
	req.NoError(err)
	req.Empty(messages)
}

func Test_Snapshot_LogsAreIsolated(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	alice := domain.Participant{ID: "alice", Name: "Alice"}

	_, err := repository.Append(context.Background(), domain.DeriveKey("alice", "bob"),
		domain.Outgoing{Sender: alice, Text: "for bob"})
	req.NoError(err)
	_, err = repository.Append(context.Background(), domain.DeriveKey("alice", "clara"),
		domain.Outgoing{Sender: alice, Text: "for clara"})
	req.NoError(err)

	messages, err := repository.Snapshot(domain.DeriveKey("alice", "bob"))
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Text)
}

func Test_UpdateStatus(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	key := domain.DeriveKey("alice", "bob")
	bob := domain.Participant{ID: "bob", Name: "Bob"}

	first, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: bob, Text: "one"})
	req.NoError(err)
	second, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: bob, Text: "two"})
	req.NoError(err)

	err = repository.UpdateStatus(context.Background(), key, []string{first.ID}, domain.StatusRead)
	req.NoError(err)

	messages, err := repository.Snapshot(key)
	req.NoError(err)
	byID := map[string]domain.Message{}
	for _, m := range messages {
		byID[m.ID] = m
	}
	req.Equal(domain.StatusRead, byID[first.ID].Status)
	req.Equal(domain.StatusSent, byID[second.ID].Status)

	// No ids means no transaction at all.
	req.NoError(repository.UpdateStatus(context.Background(), key, nil, domain.StatusRead))
}

func Test_Subscribe_DeliversInitialAndLiveSnapshots(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	key := domain.DeriveKey("alice", "bob")
	alice := domain.Participant{ID: "alice", Name: "Alice"}

	_, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: alice, Text: "before"})
	req.NoError(err)

	var mu sync.Mutex
	var snapshots [][]domain.Message
	sub, err := repository.Subscribe(context.Background(), key, func(messages []domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, messages)
	})
	req.NoError(err)
	defer sub.Cancel()

	// The first delivery happens before Subscribe returns and carries
	// the existing log.
	mu.Lock()
	req.NotEmpty(snapshots)
	req.Len(snapshots[0], 1)
	mu.Unlock()

	_, err = repository.Append(context.Background(), key, domain.Outgoing{Sender: alice, Text: "after"})
	req.NoError(err)

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(snapshots) < 2 {
			return false
		}
		last := snapshots[len(snapshots)-1]
		return len(last) == 2
	}, 5*time.Second, 20*time.Millisecond, "live snapshot never arrived")
}

func Test_Subscribe_AppendDuringStartupIsNotLost(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	key := domain.DeriveKey("alice", "bob")
	alice := domain.Participant{ID: "alice", Name: "Alice"}

	// Race an append against the subscription startup: whatever the
	// interleaving, the message must reach the subscriber, either in
	// the initial snapshot or as a live delivery.
	appended := make(chan error, 1)
	go func() {
		_, err := repository.Append(context.Background(), key, domain.Outgoing{Sender: alice, Text: "racing"})
		appended <- err
	}()

	var mu sync.Mutex
	var last []domain.Message
	sub, err := repository.Subscribe(context.Background(), key, func(messages []domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		last = messages
	})
	req.NoError(err)
	defer sub.Cancel()
	req.NoError(<-appended)

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0].Text == "racing"
	}, 5*time.Second, 20*time.Millisecond, "append racing the subscription was lost")
}

func Test_Subscribe_CancelStopsDelivery(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	key := domain.DeriveKey("alice", "bob")
	alice := domain.Participant{ID: "alice", Name: "Alice"}

	var mu sync.Mutex
	deliveries := 0
	sub, err := repository.Subscribe(context.Background(), key, func([]domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		deliveries++
	})
	req.NoError(err)

	sub.Cancel()
	sub.Cancel() // idempotent

	mu.Lock()
	afterCancel := deliveries
	mu.Unlock()

	_, err = repository.Append(context.Background(), key, domain.Outgoing{Sender: alice, Text: "too late"})
	req.NoError(err)

	// Give a would-be delivery time to fire, then check nothing did.
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	req.Equal(afterCancel, deliveries)
	mu.Unlock()
}

func Test_Append_InvokesIndexer(t *testing.T) {
	req := require.New(t)
	var indexed []domain.Message
	repository := NewMessageRepository(openTestDB(t), slog.Default()).
		WithIndexer(func(_ domain.ConversationKey, m domain.Message) error {
			indexed = append(indexed, m)
			return nil
		})
	key := domain.DeriveKey("alice", "bob")

	msg, err := repository.Append(context.Background(), key, domain.Outgoing{
		Sender: domain.Participant{ID: "alice"}, Text: "searchable",
	})
	req.NoError(err)
	req.Len(indexed, 1)
	req.Equal(msg.ID, indexed[0].ID)
}
