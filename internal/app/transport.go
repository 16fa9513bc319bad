package app

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// botTransport adapts the Telegram bot to the surface transport. The bot
// instance is created by the runtime after wiring, so handlers bind it on
// first use.
type botTransport struct {
	bot atomic.Pointer[tele.Bot]
}

// Bind stores the live bot instance. Safe to call on every update.
func (t *botTransport) Bind(b *tele.Bot) {
	if b != nil {
		t.bot.Store(b)
	}
}

func (t *botTransport) Send(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) (int, error) {
	msg, err := t.bot.Load().Send(tele.ChatID(chatID), text, sendOptions(markup))
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *botTransport) Edit(_ context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	_, err := t.bot.Load().Edit(stored(chatID, messageID), text, sendOptions(markup))
	// Rendering the same content twice is not a failure; the surface
	// already shows what was asked for.
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (t *botTransport) Delete(_ context.Context, chatID int64, messageID int) error {
	return t.bot.Load().Delete(stored(chatID, messageID))
}

func sendOptions(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
}

func stored(chatID int64, messageID int) *tele.StoredMessage {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}
