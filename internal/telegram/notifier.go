package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier отправляет пользователям одиночные сообщения.
// Используется процессом‑отправителем уведомлений об оплате.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier авторизуется в Telegram Bot API.
func NewNotifier(token string) (*Notifier, error) {
	const op = "telegram.NewNotifier"
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Notifier{api: api}, nil
}

// Send отправляет текстовое сообщение в чат пользователя.
func (n *Notifier) Send(chatID int64, text string) error {
	const op = "telegram.Notifier.Send"
	if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
