package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationsExchange — exchange очередей уведомлений.
const NotificationsExchange = "notifications"

// Очередь подтверждений оплаты.
const (
	PaymentConfirmedQueue      = "notification.payment_confirmed"
	PaymentConfirmedRoutingKey = "payment_confirmed"
)

// GetNotificationQueues возвращает очереди, обслуживаемые notification-sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: PaymentConfirmedQueue, RoutingKey: PaymentConfirmedRoutingKey},
	}
}
