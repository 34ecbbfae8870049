// Package services wires the engine's use cases: composing outgoing
// messages and managing participant profiles.
package services

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/contract"
	"arstate-chat/domain"
	"arstate-chat/moderation"
	"arstate-chat/runtime"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
)

// assistantMarker is the fixed invocation prefix, matched case-insensitively.
const assistantMarker = "@assistant"

// Composer validates drafts and dispatches them: plain text, image
// attachment, or an embedded assistant command. It orchestrates the
// store, the upload store, the assistant collaborator, and the stream
// bus; it never touches the view directly.
type Composer struct {
	log       *slog.Logger
	store     contract.RealtimeLog
	uploads   contract.ObjectStore
	assistant contract.Assistant
	bus       *runtime.StreamBus
	moderator *moderation.Moderator
}

func NewComposer(log *slog.Logger, store contract.RealtimeLog, uploads contract.ObjectStore,
	assistant contract.Assistant, bus *runtime.StreamBus) *Composer {
	return &Composer{log: log, store: store, uploads: uploads, assistant: assistant, bus: bus}
}

// WithModerator enables outbound censoring. Nil moderator means text
// passes through untouched.
func (c *Composer) WithModerator(m *moderation.Moderator) *Composer {
	c.moderator = m
	return c
}

// Send dispatches one draft. Failures surface to the caller so the UI
// can keep the draft for retry; the caller clears its input only on a
// nil return.
//
// Dispatch order is fixed:
//  1. image attached: upload then append one message with both text and
//     image ref; assistant parsing never applies;
//  2. text starts with the assistant marker: echo the typed text into
//     the log, then stream the completion through the bus and append
//     the accumulated response under the assistant identity;
//  3. otherwise append one plain text message.
func (c *Composer) Send(ctx context.Context, key domain.ConversationKey, sender domain.Participant, draft domain.Draft) error {
	text := draft.TrimmedText()
	if draft.Empty() {
		return apperrors.ErrEmptyDraft
	}

	if draft.Image != nil {
		return c.sendWithImage(ctx, key, sender, text, draft.Image)
	}
	if hasAssistantPrefix(text) {
		return c.sendAssistantCommand(ctx, key, sender, text)
	}
	_, err := c.store.Append(ctx, key, domain.Outgoing{Sender: sender, Text: c.censor(text)})
	return err
}

func (c *Composer) sendWithImage(ctx context.Context, key domain.ConversationKey, sender domain.Participant, caption string, img *domain.ImageFile) error {
	ref, err := c.uploads.Upload(ctx, uploadPath(key, img.Name), img.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	_, err = c.store.Append(ctx, key, domain.Outgoing{Sender: sender, Text: c.censor(caption), ImageRef: ref})
	return err
}

func (c *Composer) sendAssistantCommand(ctx context.Context, key domain.ConversationKey, sender domain.Participant, text string) error {
	// The invocation stays visible in history, exactly as typed.
	if _, err := c.store.Append(ctx, key, domain.Outgoing{Sender: sender, Text: text}); err != nil {
		return err
	}
	prompt := strings.TrimSpace(text[len(assistantMarker):])

	c.bus.Publish(domain.PhaseStart, "")
	var full strings.Builder
	err := c.assistant.StreamCompletion(ctx, prompt, func(chunk string) {
		full.WriteString(chunk)
		c.bus.Publish(domain.PhaseChunk, chunk)
	})
	c.bus.Publish(domain.PhaseEnd, "")
	if err != nil {
		// The collaborator already degraded to its fallback fragment;
		// the session ended cleanly, so nothing is surfaced here.
		c.log.Warn("assistant completion degraded", "key", key, "error", err)
	}

	if strings.TrimSpace(full.String()) == "" {
		return nil
	}
	_, err = c.store.Append(ctx, key, domain.Outgoing{Sender: domain.Assistant(), Text: full.String()})
	return err
}

func (c *Composer) censor(text string) string {
	if c.moderator == nil || text == "" {
		return text
	}
	censored, _ := c.moderator.Censor(text)
	return censored
}

func hasAssistantPrefix(text string) bool {
	return strings.HasPrefix(strings.ToLower(text), assistantMarker)
}

// uploadPath namespaces uploads per conversation and keeps the original
// extension so the object store can serve a sensible content type.
func uploadPath(key domain.ConversationKey, filename string) string {
	return fmt.Sprintf("images/%s/%s%s", key, uuid.NewString(), path.Ext(filename))
}
