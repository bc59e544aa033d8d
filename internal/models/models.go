// Package models содержит доменную модель пользователя бота,
// его права доступа к платным функциям и события платёжного провайдера.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Канонический идентификатор пользователя — числовой Telegram ID (BIGINT).
// Строковые представления допускаются только на границе с провайдером
// (order_id) и сразу конвертируются в int64.

// User представляет пользователя бота.
type User struct {
	UserID    int64     // Числовой идентификатор, выдаётся чат-платформой
	Language  string    // Предпочитаемый язык сообщений ("ar", "en")
	CreatedAt time.Time // Дата первого обращения к боту
}

// Entitlement представляет права пользователя на платные функции.
// Состояние монотонно: untried -> trial_consumed -> paid; откат возможен
// только административным сбросом пробного периода.
type Entitlement struct {
	UserID        int64
	Paid          bool // Пользователь оплатил доступ
	TrialConsumed bool // Пользователь израсходовал бесплатную попытку
}

// PaymentEvent представляет одно IPN-уведомление платёжного провайдера.
// OrderID по соглашению равен числовому идентификатору пользователя.
type PaymentEvent struct {
	PaymentID     int64  `json:"payment_id"`
	PaymentStatus string `json:"payment_status" validate:"required"`
	OrderID       string `json:"order_id" validate:"required,numeric"`
	PayAmount     string `json:"pay_amount"`
	PayCurrency   string `json:"pay_currency"`
}

// StatusFinished — единственный статус события, приводящий к выдаче прав.
const StatusFinished = "finished"

// PaymentConfirmation — сообщение для очереди уведомлений об оплате.
type PaymentConfirmation struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Session представляет состояние диалога одного пользователя.
// Заменяет глобальные map-ы с составными строковыми ключами: запись
// именованная, ключ — только идентификатор пользователя. Потеря записи
// безвредна, права доступа здесь не хранятся.
type Session struct {
	Language   string `json:"language"`
	Stage      string `json:"stage"`
	LastSymbol string `json:"last_symbol"`
}

// Стадии диалога.
const (
	StageInitial         = "initial"
	StageAwaitingSymbol  = "awaiting_symbol"
	StageAwaitingPayment = "awaiting_payment"
)
