// Package inbox — repository.go выполняет операции с таблицей inbox.
package inbox

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/minicasino/internal/db/postgres"
)

// Repository работает с таблицей inbox.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий почты.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert добавляет уведомление.
func (r *Repository) Insert(ctx context.Context, n Notification) error {
	sqlStr, args, err := postgres.Builder.
		Insert("inbox").
		Columns("user_id", "category", "title", "body", "created_at").
		Values(n.UserID, n.Category, n.Title, n.Body, n.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("ошибка записи уведомления: %w", err)
	}
	return nil
}

// List возвращает последние уведомления игрока.
func (r *Repository) List(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	sqlStr, args, err := postgres.Builder.
		Select("id", "user_id", "category", "title", "body", "is_read", "created_at").
		From("inbox").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	rows, err := conn.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения почты: %w", err)
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// CountUnread считает непрочитанные уведомления.
func (r *Repository) CountUnread(ctx context.Context, userID int64) (int, error) {
	sqlStr, args, err := postgres.Builder.
		Select("COUNT(*)").
		From("inbox").
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	if err := conn.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта почты: %w", err)
	}
	return n, nil
}

// MarkAllRead отмечает почту игрока прочитанной.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	sqlStr, args, err := postgres.Builder.
		Update("inbox").
		Set("is_read", true).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки почты: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Prune удаляет уведомления сверх keep у каждого игрока.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	sqlStr, args, err := postgres.Builder.
		Delete("inbox").
		Where(sq.Expr(`id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn
				FROM inbox
			) ranked WHERE ranked.rn > ?)`, keep)).
		ToSql()
	if err != nil {
		return 0, err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки почты: %w", err)
	}
	return tag.RowsAffected(), nil
}
