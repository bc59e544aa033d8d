// Package sessions хранит состояние диалога пользователей в redis.
// Запись — именованная структура models.Session, ключ строится только
// из числового идентификатора пользователя. Права доступа здесь не
// хранятся: потеря сессии приводит лишь к возврату в начало диалога.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinsight/coinsight-bot/internal/config"
	"github.com/coinsight/coinsight-bot/internal/models"
)

const keyPrefix = "session:"

// TTL сессии: неактивный диалог истекает сам.
const sessionTTL = 24 * time.Hour

// Store реализует хранилище сессий поверх redis.
type Store struct {
	db *redis.Client
}

// New подключается к redis и проверяет соединение.
func New(ctx context.Context, cfg config.RedisConnection) (*Store, error) {
	const op = "sessions.New"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db}, nil
}

func key(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

// Get возвращает сессию пользователя; false — сессии нет.
func (s *Store) Get(ctx context.Context, userID int64) (models.Session, bool, error) {
	const op = "sessions.Get"
	val, err := s.db.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return models.Session{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return session, true, nil
}

// Set сохраняет сессию пользователя.
func (s *Store) Set(ctx context.Context, userID int64, session models.Session) error {
	const op = "sessions.Set"
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.db.Set(ctx, key(userID), jsonData, sessionTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет сессию пользователя.
func (s *Store) Invalidate(ctx context.Context, userID int64) error {
	const op = "sessions.Invalidate"
	if err := s.db.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с redis.
func (s *Store) Close() error {
	return s.db.Close()
}
