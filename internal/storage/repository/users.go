package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coinsight/coinsight-bot/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует в хранилище.
var ErrUserNotFound = errors.New("user not found")

// UpsertUser сохраняет пользователя при первом обращении к боту.
// Повторный вызов для того же user_id не имеет эффекта.
func (s *Storage) UpsertUser(ctx context.Context, userID int64, language string) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, language)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userID, language); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetUserLanguage обновляет предпочитаемый язык пользователя.
func (s *Storage) SetUserLanguage(ctx context.Context, userID int64, language string) error {
	const op = "storage.SetUserLanguage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET language = $1 WHERE user_id = $2`
	if _, err := s.DB.ExecContext(ctx, query, language, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его числовому идентификатору.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, language, created_at
			  FROM users
			  WHERE user_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&u.UserID, &u.Language, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserLanguage возвращает язык пользователя или пустую строку,
// если пользователь неизвестен хранилищу.
func (s *Storage) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	const op = "storage.GetUserLanguage"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT language FROM users WHERE user_id = $1`
	var language string
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return language, nil
}
