// Package notifier реализует доставку подтверждений оплаты из очереди
// уведомлений в чат пользователя.
package notifier

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coinsight/coinsight-bot/internal/lib/sl"
	"github.com/coinsight/coinsight-bot/internal/models"
)

// Sender отправляет сообщение в чат пользователя.
type Sender interface {
	Send(chatID int64, text string) error
}

// Service потребляет сообщения очереди подтверждений оплаты.
type Service struct {
	sender Sender
	log    *slog.Logger
}

// New создает Service доставки уведомлений.
func New(sender Sender, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		log:    log,
	}
}

// SendPaymentConfirmation доставляет одно подтверждение оплаты.
// Ошибка доставки возвращается вызывающему: сообщение будет
// переочередено брокером.
func (s *Service) SendPaymentConfirmation(body []byte) error {
	const op = "services.notifier.SendPaymentConfirmation"

	var message models.PaymentConfirmation
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal confirmation message", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sender.Send(message.UserID, message.Text); err != nil {
		s.log.Error("failed to deliver payment confirmation",
			sl.Err(err), slog.Int64("user_id", message.UserID))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment confirmation delivered", slog.Int64("user_id", message.UserID))
	return nil
}
