// Package surface enforces the one-live-message-per-slot policy: a phase's
// display is edited in place instead of resent, and stale messages are
// removed in a deferred batch on phase transitions.
package surface

import (
	"context"
	"fmt"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/wordbot/core/logger"
	"github.com/m3rciful/wordbot/internal/session"
)

// Transport performs the raw messaging operations. The production
// implementation wraps the Telegram bot; tests supply a fake.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Manager owns surface lifecycle for sessions.
type Manager struct {
	transport Transport
}

// NewManager creates a Manager on top of the given transport.
func NewManager(t Transport) *Manager {
	return &Manager{transport: t}
}

// ShowOrUpdate renders text and controls into the slot's surface. The first
// call for a slot creates a message and records its ID; later calls edit it
// in place. If the recorded message can no longer be edited (deleted by the
// user), a fresh one is created and the stale ID queued for deletion.
func (m *Manager) ShowOrUpdate(ctx context.Context, sess *session.Session, slot session.Slot, text string, markup *tele.ReplyMarkup) error {
	if id, ok := sess.Surfaces[slot]; ok {
		err := m.transport.Edit(ctx, sess.ChatID, id, text, markup)
		if err == nil {
			return nil
		}
		logger.Debug(ctx, "surface", "edit.fallback",
			slog.String("slot", string(slot)),
			slog.Int("message_id", id),
			slog.String("err", err.Error()),
		)
		m.ScheduleDeletion(sess, id)
		delete(sess.Surfaces, slot)
	}

	id, err := m.transport.Send(ctx, sess.ChatID, text, markup)
	if err != nil {
		return fmt.Errorf("surface: show %s: %w", slot, err)
	}
	sess.Surfaces[slot] = id
	return nil
}

// ScheduleDeletion queues a message for removal on the next ClearPending
// call. Deletion never happens synchronously mid-handler so that outbound
// ordering stays deterministic.
func (m *Manager) ScheduleDeletion(sess *session.Session, messageID int) {
	if messageID == 0 {
		return
	}
	sess.PendingDeletions = append(sess.PendingDeletions, messageID)
}

// DropSlot queues the slot's live surface for deletion and unsets it.
func (m *Manager) DropSlot(sess *session.Session, slot session.Slot) {
	if id, ok := sess.Surfaces[slot]; ok {
		m.ScheduleDeletion(sess, id)
		delete(sess.Surfaces, slot)
	}
}

// DropAll queues every live surface for deletion. Used when a session ends.
func (m *Manager) DropAll(sess *session.Session) {
	for slot := range sess.Surfaces {
		m.DropSlot(sess, slot)
	}
}

// ClearPending deletes every queued message, best effort. A message that is
// already gone is not an error; failures are logged and swallowed.
func (m *Manager) ClearPending(ctx context.Context, sess *session.Session) {
	if len(sess.PendingDeletions) == 0 {
		return
	}
	for _, id := range sess.PendingDeletions {
		if err := m.transport.Delete(ctx, sess.ChatID, id); err != nil {
			logger.Debug(ctx, "surface", "delete.skip",
				slog.Int("message_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
	sess.PendingDeletions = nil
}
