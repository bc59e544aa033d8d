package repository

import (
	"context"
	"fmt"

	"github.com/coinsight/coinsight-bot/internal/models"
)

// GrantPaid переводит пользователя в оплаченное состояние.
// Возвращает true, если именно этот вызов выполнил вставку: при повторной
// доставке того же платёжного события вставка конфликтует по первичному
// ключу и не выполняется, конфликт — ожидаемый исход, а не ошибка.
func (s *Storage) GrantPaid(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.GrantPaid"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO paid_users (user_id)
			  VALUES ($1)
			  ON CONFLICT (user_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return inserted == 1, nil
}

// IsPaid сообщает, находится ли пользователь в оплаченном состоянии.
func (s *Storage) IsPaid(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.IsPaid"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS(SELECT 1 FROM paid_users WHERE user_id = $1)`
	var paid bool
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&paid); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return paid, nil
}

// ConsumeTrial помечает пробный период пользователя израсходованным.
// Возвращает true, если именно этот вызов выполнил вставку: из двух
// одновременных запросов одного пользователя бесплатную попытку
// получает ровно один.
func (s *Storage) ConsumeTrial(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.ConsumeTrial"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trial_consumed (user_id)
			  VALUES ($1)
			  ON CONFLICT (user_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return inserted == 1, nil
}

// ResetTrials очищает все отметки об израсходованных пробных периодах.
// Единственный путь понижения состояния, выполняется только оператором.
func (s *Storage) ResetTrials(ctx context.Context) (int64, error) {
	const op = "storage.ResetTrials"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM trial_consumed`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListEntitlements возвращает полный снимок прав для прогрева кеша.
func (s *Storage) ListEntitlements(ctx context.Context) ([]models.Entitlement, error) {
	const op = "storage.ListEntitlements"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(p.user_id, t.user_id) AS user_id,
				  p.user_id IS NOT NULL AS paid,
				  t.user_id IS NOT NULL AS trial_consumed
			  FROM paid_users p
			  FULL OUTER JOIN trial_consumed t ON p.user_id = t.user_id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Entitlement
	for rows.Next() {
		var e models.Entitlement
		if err := rows.Scan(&e.UserID, &e.Paid, &e.TrialConsumed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetEntitlement возвращает права одного пользователя.
func (s *Storage) GetEntitlement(ctx context.Context, userID int64) (models.Entitlement, error) {
	const op = "storage.GetEntitlement"
	select {
	case <-ctx.Done():
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS(SELECT 1 FROM paid_users WHERE user_id = $1),
				  EXISTS(SELECT 1 FROM trial_consumed WHERE user_id = $1)`
	e := models.Entitlement{UserID: userID}
	row := s.DB.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&e.Paid, &e.TrialConsumed); err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}
