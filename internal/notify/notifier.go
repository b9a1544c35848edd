package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fourfat_bot/pkg/logger"
)

// Notifier — человеко-читаемые события прогона (входы, филлы, отчёт).
// Реализации обязаны быть nil-safe: движок шлёт не глядя.
type Notifier interface {
	Send(text string)
	Sendf(format string, args ...interface{})
}

// Telegram шлёт сообщения в чат. Нулевой *Telegram молча глотает всё,
// поэтому бот без токена работает как обычно.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(text string) {
	if t == nil || t.bot == nil {
		return
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		logger.Error("telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...interface{}) {
	t.Send(fmt.Sprintf(format, args...))
}

// Stdout — замена для локальных прогонов и тестов.
type Stdout struct{}

func (Stdout) Send(text string) { log.Printf("[NOTIFY] %s", text) }

func (Stdout) Sendf(format string, args ...interface{}) {
	log.Printf("[NOTIFY] "+format, args...)
}
