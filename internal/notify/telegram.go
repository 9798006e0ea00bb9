package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramSender дублирует уведомления в Telegram пользователям,
// привязавшим чат. Канал опциональный: без токена не создаётся.
type TelegramSender struct {
	bot *bot.Bot
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

// Send отправляет текст в указанный чат
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
