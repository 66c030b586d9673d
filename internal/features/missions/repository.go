// Package missions — repository.go выполняет операции с таблицей missions.
package missions

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/minicasino/internal/db/postgres"
)

// Repository работает с таблицей missions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий миссий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetProgress возвращает прогресс игрока. Нет строки — пустой прогресс.
func (r *Repository) GetProgress(ctx context.Context, userID int64) (*Progress, error) {
	sqlStr, args, err := postgres.Builder.
		Select("user_id", "plinko_plays", "rounds_started", "completed", "claimed",
			"daily_claimed_at", "first_bet_claimed", "updated_at").
		From("missions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p Progress
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	err = conn.QueryRow(ctx, sqlStr, args...).Scan(
		&p.UserID, &p.PlinkoPlays, &p.RoundsStarted, &p.Completed, &p.Claimed,
		&p.DailyClaimedAt, &p.FirstBetClaimed, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Progress{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения миссий (user_id=%d): %w", userID, err)
	}
	return &p, nil
}

// SaveProgress записывает снимок прогресса целиком.
func (r *Repository) SaveProgress(ctx context.Context, p Progress) error {
	sqlStr, args, err := postgres.Builder.
		Insert("missions").
		Columns("user_id", "plinko_plays", "rounds_started", "completed", "claimed",
			"daily_claimed_at", "first_bet_claimed", "updated_at").
		Values(p.UserID, p.PlinkoPlays, p.RoundsStarted, p.Completed, p.Claimed,
			p.DailyClaimedAt, p.FirstBetClaimed, p.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			plinko_plays = EXCLUDED.plinko_plays,
			rounds_started = EXCLUDED.rounds_started,
			completed = EXCLUDED.completed,
			claimed = EXCLUDED.claimed,
			daily_claimed_at = EXCLUDED.daily_claimed_at,
			first_bet_claimed = EXCLUDED.first_bet_claimed,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("ошибка сохранения миссий: %w", err)
	}
	return nil
}
