package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"WalletSentinel/internal/retrier"
)

// maxMessageRunes is the Telegram limit for one message.
const maxMessageRunes = 4096

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	backoff time.Duration
	logger  *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) (*TelegramNotifier, error) {
	return newTelegramNotifier(botToken, chatID, proxyURL, tgbotapi.APIEndpoint, logger)
}

func newTelegramNotifier(botToken, chatID, proxyURL, endpoint string, logger *zap.Logger) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid telegram chat id")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   45 * time.Second,
		Transport: transport,
	}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}
	logger.Info("telegram bot initialized", zap.String("username", api.Self.UserName))

	return &TelegramNotifier{api: api, chatID: id, backoff: time.Second, logger: logger}, nil
}

// Send sends an HTML message to the configured chat. Long text is truncated.
func (t *TelegramNotifier) Send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, truncate(text, maxMessageRunes))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	attempts := 0
	r := retrier.New(
		retrier.WithMaxRetries(maxRetries),
		retrier.WithInitialInterval(t.backoff),
		retrier.OnRetry(func(retry int, delay time.Duration, err error) {
			t.logger.Warn("telegram send failed",
				zap.Int("attempt", retry), zap.Int("max_attempts", maxRetries+1),
				zap.Duration("retry_in", delay), zap.Error(err))
		}),
	)
	err := r.Do(ctx, func(context.Context) error {
		attempts++
		return t.Send(text)
	})
	if err != nil {
		return errors.Wrapf(err, "telegram send failed after %d attempts", attempts)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
