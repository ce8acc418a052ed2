package telegram

import (
	"context"

	"github.com/go-telegram/bot"
)

// Telegram rejects messages over ~4096 characters. Long replies (OCR
// dumps, big listings) are split below that.
const sendChunkSize = 3500

// send delivers one reply. Delivery failures are logged and swallowed:
// a lost reply must never abort the dispatch or poison the
// conversation state.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		errorsTotal.WithLabelValues("send").Inc()
		b.logger.Error(ctx, "failed to send message", "err", err, "chat_id", chatID)
	}
}

// sendLong splits text into chunks and sends them in order.
func (b *Bot) sendLong(ctx context.Context, chatID int64, text string) {
	runes := []rune(text)
	for len(runes) > 0 {
		n := len(runes)
		if n > sendChunkSize {
			n = sendChunkSize
		}
		b.send(ctx, chatID, string(runes[:n]))
		runes = runes[n:]
	}
}
