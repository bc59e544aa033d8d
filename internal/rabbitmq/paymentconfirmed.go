package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/coinsight/coinsight-bot/internal/models"
)

// PaymentConfirmationPublisher публикует подтверждения оплаты
// в очередь уведомлений.
type PaymentConfirmationPublisher struct {
	ch *amqp.Channel
}

// NewPaymentConfirmationPublisher создает публикатор поверх открытого канала.
func NewPaymentConfirmationPublisher(ch *amqp.Channel) *PaymentConfirmationPublisher {
	return &PaymentConfirmationPublisher{ch: ch}
}

// PublishPaymentConfirmed кладёт подтверждение оплаты в очередь.
func (p *PaymentConfirmationPublisher) PublishPaymentConfirmed(message models.PaymentConfirmation) error {
	return PublishMessage(p.ch, NotificationsExchange, PaymentConfirmedRoutingKey, message)
}
