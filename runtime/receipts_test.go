package runtime

import (
	"arstate-chat/domain"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Reconcile_MarksOnlyPeerSentMessages(t *testing.T) {
	req := require.New(t)
	store := &fakeLog{}
	tracker := NewReadReceiptTracker(store, slog.Default())
	key := domain.DeriveKey("alice", "bob")

	messages := []domain.Message{
		{ID: "m1", Sender: domain.Participant{ID: "bob"}, Status: domain.StatusSent},
		{ID: "m2", Sender: domain.Participant{ID: "bob"}, Status: domain.StatusRead},
		{ID: "m3", Sender: domain.Participant{ID: "alice"}, Status: domain.StatusSent},
		{ID: "m4", Sender: domain.Participant{ID: "bob"}, Status: domain.StatusSent},
	}
	req.NoError(tracker.Reconcile(context.Background(), key, "alice", messages))

	req.Len(store.updates, 1)
	req.Equal([]string{"m1", "m4"}, store.updates[0].ids)
	req.Equal(domain.StatusRead, store.updates[0].status)
}

func Test_Reconcile_NothingUnreadIssuesNoCall(t *testing.T) {
	req := require.New(t)
	store := &fakeLog{}
	tracker := NewReadReceiptTracker(store, slog.Default())
	key := domain.DeriveKey("alice", "bob")

	messages := []domain.Message{
		{ID: "m1", Sender: domain.Participant{ID: "bob"}, Status: domain.StatusRead},
		{ID: "m2", Sender: domain.Participant{ID: "alice"}, Status: domain.StatusSent},
	}
	req.NoError(tracker.Reconcile(context.Background(), key, "alice", messages))
	req.Empty(store.updates)

	// Idempotent on a fully reconciled snapshot.
	req.NoError(tracker.Reconcile(context.Background(), key, "alice", nil))
	req.Empty(store.updates)
}

func Test_Reconcile_SurfacesStoreFailure(t *testing.T) {
	req := require.New(t)
	store := &fakeLog{updateErr: fmt.Errorf("store down")}
	tracker := NewReadReceiptTracker(store, slog.Default())

	messages := []domain.Message{
		{ID: "m1", Sender: domain.Participant{ID: "bob"}, Status: domain.StatusSent},
	}
	err := tracker.Reconcile(context.Background(), domain.DeriveKey("alice", "bob"), "alice", messages)
	req.Error(err)
}
