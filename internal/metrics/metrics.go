// Package metrics регистрирует счётчики prometheus для платёжного конвейера.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents считает входящие уведомления провайдера по исходу обработки:
	// upgraded, duplicate, ignored, rejected_signature, rejected_payload, failed.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries by processing outcome.",
	}, []string{"outcome"})

	// EntitlementUpgrades считает первые применения события "finished".
	EntitlementUpgrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_upgrades_total",
		Help: "Users upgraded to paid state.",
	})

	// TrialsConsumed считает израсходованные пробные периоды.
	TrialsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trials_consumed_total",
		Help: "Trials consumed by users.",
	})

	// NotificationsPublished считает сообщения, отправленные в очередь уведомлений.
	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_notifications_published_total",
		Help: "Payment confirmation notifications published to the queue.",
	})
)
