// Package cache реализует локальное зеркало прав доступа в памяти процесса.
// Зеркало целиком загружается из хранилища при старте и обновляется
// сквозной записью сразу после фиксации изменения в хранилище; чтения
// на горячем пути никогда не обращаются к базе данных. При перезапуске
// процесса зеркало отбрасывается и перестраивается заново.
package cache

import (
	"sync"

	"github.com/coinsight/coinsight-bot/internal/models"
)

// Entitlements — зеркало таблиц прав доступа, ключ — числовой
// идентификатор пользователя.
type Entitlements struct {
	mu    sync.RWMutex
	flags map[int64]models.Entitlement
}

// NewEntitlements создает пустое зеркало прав.
func NewEntitlements() *Entitlements {
	return &Entitlements{
		flags: make(map[int64]models.Entitlement),
	}
}

// WarmUp заполняет зеркало снимком из хранилища, отбрасывая прежнее содержимое.
func (c *Entitlements) WarmUp(entries []models.Entitlement) {
	flags := make(map[int64]models.Entitlement, len(entries))
	for _, e := range entries {
		flags[e.UserID] = e
	}

	c.mu.Lock()
	c.flags = flags
	c.mu.Unlock()
}

// Get возвращает права пользователя; отсутствие записи означает
// состояние "не платил и не пробовал".
func (c *Entitlements) Get(userID int64) models.Entitlement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.flags[userID]
	if !ok {
		return models.Entitlement{UserID: userID}
	}
	return e
}

// SetPaid помечает пользователя оплатившим. Вызывается только тем же
// путём исполнения, который зафиксировал запись в хранилище.
func (c *Entitlements) SetPaid(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.flags[userID]
	e.UserID = userID
	e.Paid = true
	c.flags[userID] = e
}

// SetTrialConsumed помечает пробный период израсходованным.
func (c *Entitlements) SetTrialConsumed(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.flags[userID]
	e.UserID = userID
	e.TrialConsumed = true
	c.flags[userID] = e
}

// ResetTrials снимает отметку пробного периода со всех пользователей,
// отражая административный сброс в хранилище.
func (c *Entitlements) ResetTrials() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.flags {
		if !e.Paid && !e.TrialConsumed {
			continue
		}
		e.TrialConsumed = false
		if !e.Paid {
			delete(c.flags, id)
			continue
		}
		c.flags[id] = e
	}
}

// Len возвращает число записей в зеркале.
func (c *Entitlements) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.flags)
}
