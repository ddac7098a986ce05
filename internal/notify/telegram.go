package notify

import (
	"context"
	"fmt"

	gobot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram sends alerts to a single chat.
type Telegram struct {
	bot    *gobot.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	bot, err := gobot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = false
	logger.Info("telegram connected", zap.String("username", bot.Self.UserName))

	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, level Level, message string) {
	msg := gobot.NewMessage(t.chatID, fmt.Sprintf("[%s] %s", level, message))
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to send telegram alert", zap.Error(err))
	}
}
