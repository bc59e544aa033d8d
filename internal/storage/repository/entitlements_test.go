package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/coinsight/coinsight-bot/internal/migrations"
)

func getTestStorage(t *testing.T) *Storage {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	projectRoot, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(projectRoot, "migrations")))

	t.Cleanup(func() {
		storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	return storage
}

func TestGrantPaid_Idempotent(t *testing.T) {
	storage := getTestStorage(t)
	ctx := context.Background()

	// Первая доставка события выполняет вставку
	inserted, err := storage.GrantPaid(ctx, 42)
	require.NoError(t, err)
	require.True(t, inserted, "first delivery must perform the insert")

	// Повторная доставка того же события — no-op
	inserted, err = storage.GrantPaid(ctx, 42)
	require.NoError(t, err)
	require.False(t, inserted, "redelivery must observe conflict and no-op")

	paid, err := storage.IsPaid(ctx, 42)
	require.NoError(t, err)
	require.True(t, paid)
}

func TestConsumeTrial_SingleWinner(t *testing.T) {
	storage := getTestStorage(t)
	ctx := context.Background()

	// Два конкурентных запроса одного пользователя: выигрывает один
	type result struct {
		inserted bool
		err      error
	}
	results := make(chan result, 2)
	for range 2 {
		go func() {
			ok, err := storage.ConsumeTrial(ctx, 42)
			results <- result{ok, err}
		}()
	}

	var winners int
	for range 2 {
		r := <-results
		require.NoError(t, r.err)
		if r.inserted {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent request may consume the trial")
}

func TestResetTrials(t *testing.T) {
	storage := getTestStorage(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := storage.ConsumeTrial(ctx, id)
		require.NoError(t, err)
	}
	_, err := storage.GrantPaid(ctx, 2)
	require.NoError(t, err)

	count, err := storage.ResetTrials(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	// Оплаченное состояние сброс не трогает
	paid, err := storage.IsPaid(ctx, 2)
	require.NoError(t, err)
	require.True(t, paid)

	e, err := storage.GetEntitlement(ctx, 1)
	require.NoError(t, err)
	require.False(t, e.TrialConsumed)
}

func TestListEntitlements(t *testing.T) {
	storage := getTestStorage(t)
	ctx := context.Background()

	_, err := storage.GrantPaid(ctx, 10)
	require.NoError(t, err)
	_, err = storage.ConsumeTrial(ctx, 20)
	require.NoError(t, err)
	_, err = storage.GrantPaid(ctx, 30)
	require.NoError(t, err)
	_, err = storage.ConsumeTrial(ctx, 30)
	require.NoError(t, err)

	entries, err := storage.ListEntitlements(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := make(map[int64]struct{ paid, trial bool })
	for _, e := range entries {
		byID[e.UserID] = struct{ paid, trial bool }{e.Paid, e.TrialConsumed}
	}
	require.Equal(t, struct{ paid, trial bool }{true, false}, byID[10])
	require.Equal(t, struct{ paid, trial bool }{false, true}, byID[20])
	require.Equal(t, struct{ paid, trial bool }{true, true}, byID[30])
}

func TestUsers_LanguageLifecycle(t *testing.T) {
	storage := getTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertUser(ctx, 42, "ar"))
	// Повторная регистрация не перетирает выбор языка
	require.NoError(t, storage.SetUserLanguage(ctx, 42, "en"))
	require.NoError(t, storage.UpsertUser(ctx, 42, "ar"))

	u, err := storage.GetUser(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), u.UserID)
	require.Equal(t, "en", u.Language)

	lang, err := storage.GetUserLanguage(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "en", lang)

	// Неизвестный пользователь — пустой язык без ошибки
	lang, err = storage.GetUserLanguage(ctx, 777)
	require.NoError(t, err)
	require.Equal(t, "", lang)

	_, err = storage.GetUser(ctx, 777)
	require.ErrorIs(t, err, ErrUserNotFound)
}
