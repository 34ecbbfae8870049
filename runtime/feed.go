package runtime

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/contract"
	"arstate-chat/domain"
	"context"
	"log/slog"
	"sort"
	"sync"
)

// ConversationFeed is the consumer side of one open conversation: it
// owns the store subscription, re-sorts every snapshot into timeline
// order, hands it to the view, and drives read-receipt reconciliation.
// Exactly one feed should be open per client; switching conversations
// means closing the old feed before (or immediately after) opening the
// new one, otherwise snapshots cross-deliver into the wrong view.
type ConversationFeed struct {
	log      *slog.Logger
	key      domain.ConversationKey
	viewerID string
	sub      contract.Subscription

	mu     sync.Mutex
	closed bool
}

// OpenFeed validates the pair, subscribes, and starts delivering sorted
// snapshots to onSnapshot. The receipt tracker may be nil (e.g. for
// read-only tooling).
func OpenFeed(ctx context.Context, log *slog.Logger, store contract.RealtimeLog,
	viewerID, peerID string, onSnapshot contract.SnapshotFunc,
	receipts *ReadReceiptTracker) (*ConversationFeed, error) {
	if viewerID == peerID {
		return nil, apperrors.ErrSelfConversation
	}
	key := domain.DeriveKey(viewerID, peerID)
	feed := &ConversationFeed{log: log, key: key, viewerID: viewerID}

	sub, err := store.Subscribe(ctx, key, func(messages []domain.Message) {
		feed.mu.Lock()
		if feed.closed {
			feed.mu.Unlock()
			return
		}
		feed.mu.Unlock()

		SortMessages(messages)
		onSnapshot(messages)
		if receipts != nil {
			// Failures are already logged by the tracker; the next
			// snapshot reconciles the same set.
			_ = receipts.Reconcile(ctx, key, viewerID, messages)
		}
	})
	if err != nil {
		return nil, err
	}
	feed.sub = sub
	return feed, nil
}

// Key returns the conversation key this feed is bound to.
func (f *ConversationFeed) Key() domain.ConversationKey {
	return f.key
}

// Close cancels the subscription. Idempotent; after it returns no
// further snapshot reaches the view.
func (f *ConversationFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()
	f.sub.Cancel()
}

// SortMessages orders a snapshot by CreatedAt ascending; equal
// timestamps fall back to store-key order, which is stable but not
// time-significant.
func SortMessages(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}
