package notifier

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"
)

// TelegramNotifier sends messages to one chat and answers commands from it.
type TelegramNotifier struct {
	bot     *tele.Bot
	chat    tele.ChatID
	Backoff time.Duration // first retry delay, doubled on each attempt
}

// NewTelegramNotifier creates a notifier with optional proxy support.
// The token is checked against the Bot API.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return newTelegramNotifier(tele.Settings{
		Token:  botToken,
		Poller: &tele.LongPoller{Timeout: 30 * time.Second},
		Client: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
	}, chatID)
}

func newTelegramNotifier(settings tele.Settings, chatID string) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	settings.ParseMode = tele.ModeHTML
	settings.OnError = func(err error, c tele.Context) {
		log.Printf("[ERROR] telegram handler: %v", err)
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chat: tele.ChatID(id), Backoff: time.Second}, nil
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if _, err := t.bot.Send(t.chat, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff * time.Duration(1<<uint(i))
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
