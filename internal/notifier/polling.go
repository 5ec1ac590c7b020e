package notifier

import (
	"context"
	"log"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// onlyConfiguredChat drops updates from every chat but the configured one.
func (t *TelegramNotifier) onlyConfiguredChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if chat := c.Chat(); chat == nil || chat.ID != int64(t.chat) {
			log.Printf("[WARN] ignoring message from unauthorized chat")
			return nil
		}
		return next(c)
	}
}

// register routes every text message, slash commands included, to handler.
func (t *TelegramNotifier) register(handler CommandHandler) {
	t.bot.Use(t.onlyConfiguredChat)
	t.bot.Handle(tele.OnText, func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())
		if text == "" {
			return nil
		}
		log.Printf("[INFO] received command: %s", text)
		reply := handler(text)
		if reply == "" {
			return nil
		}
		if err := c.Send(reply); err != nil {
			log.Printf("[ERROR] send reply: %v", err)
			return err
		}
		return nil
	})
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	t.register(handler)
	go t.bot.Start()

	<-ctx.Done()
	t.bot.Stop()
	log.Println("[INFO] Telegram polling stopped")
}
