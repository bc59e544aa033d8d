// Package repository реализует хранилище данных на основе PostgreSQL
// для учёта пользователей и их прав на платные функции. Хранилище —
// единственный долговечный источник истины о правах; кеш процесса
// перестраивается из него при каждом старте.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями и правами доступа.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ready проверяет готовность хранилища к обслуживанию.
func (s *Storage) Ready() error {
	return CheckDatabaseReady(s)
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'paid_users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table paid_users missing or query error: %w", err)
	}
	return nil
}
