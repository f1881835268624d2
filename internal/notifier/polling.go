package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// CommandHandler is called when a user command is received and returns the reply.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands from the configured
// chat. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat == nil || msg.Chat.ID != t.chatID {
		return
	}
	text := strings.TrimSpace(msg.Text)
	t.logger.Info("received command", zap.String("command", text))

	// handlers may run a full analysis; keep the update loop free
	go func() {
		if reply := handler(ctx, text); reply != "" {
			if err := t.SendWithRetry(ctx, reply, 2); err != nil {
				t.logger.Error("send reply", zap.Error(err))
			}
		}
	}()
}
