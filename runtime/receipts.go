package runtime

import (
	"arstate-chat/contract"
	"arstate-chat/domain"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

// ReadReceiptTracker promotes the peer's unread messages to Read. It
// runs against every snapshot of the currently open conversation and
// only there; no background read-marking happens for closed views.
type ReadReceiptTracker struct {
	store contract.RealtimeLog
	log   *slog.Logger
}

func NewReadReceiptTracker(store contract.RealtimeLog, log *slog.Logger) *ReadReceiptTracker {
	return &ReadReceiptTracker{store: store, log: log}
}

// Reconcile batches every Sent message not authored by the viewer into
// one UpdateStatus call. Issues no call when nothing is unread, so
// repeated runs on a reconciled snapshot are no-ops. A failed update is
// logged and not retried here: the next snapshot reconciles the same
// set again, which makes the tracker self-healing.
func (t *ReadReceiptTracker) Reconcile(ctx context.Context, key domain.ConversationKey, viewerID string, messages []domain.Message) error {
	unread := lo.FilterMap(messages, func(m domain.Message, _ int) (string, bool) {
		return m.ID, m.Sender.ID != viewerID && m.Status == domain.StatusSent
	})
	if len(unread) == 0 {
		return nil
	}
	if err := t.store.UpdateStatus(ctx, key, unread, domain.StatusRead); err != nil {
		t.log.Warn("read-receipt update failed, next snapshot will retry", "key", key, "count", len(unread), "error", err)
		return err
	}
	return nil
}
