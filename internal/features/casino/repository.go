// Package casino — repository.go выполняет операции с таблицами casino_rounds и casino_stats.
package casino

import (
	"context"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/minicasino/internal/db/postgres"
	"serotonyl.ru/minicasino/internal/features/history"
)

// Repository работает с таблицами казино в БД.
type Repository struct {
	db *pgxpool.Pool
	tm trm.Manager
}

// NewRepository создаёт репозиторий казино.
func NewRepository(db *pgxpool.Pool, tm trm.Manager) *Repository {
	return &Repository{db: db, tm: tm}
}

// SaveRound сохраняет раунд в casino_rounds и обновляет casino_stats.
// Обе записи выполняются в одной транзакции.
func (r *Repository) SaveRound(ctx context.Context, row RoundRow) error {
	return r.tm.Do(ctx, func(ctx context.Context) error {
		conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
		rec := row.Record

		sqlStr, args, err := postgres.Builder.
			Insert("casino_rounds").
			Columns("round_id", "user_id", "game_id", "game_kind", "stake", "payout",
				"bet", "result", "info", "balance_after", "game_data", "created_at").
			Values(rec.RoundID, row.UserID, rec.GameID, string(row.Kind),
				postgres.Numeric(row.Stake), postgres.Numeric(row.Payout), postgres.Numeric(rec.Bet),
				string(rec.Result), rec.Info, postgres.Numeric(rec.BalanceAfter), GameData(row.Detail), rec.Time).
			Suffix("ON CONFLICT (round_id) DO NOTHING").
			ToSql()
		if err != nil {
			return err
		}
		tag, err := conn.Exec(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("ошибка сохранения раунда: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Раунд уже записан при прошлой попытке очереди
			return nil
		}

		win := 0
		if rec.Result == history.ResultWin {
			win = 1
		}
		sqlStr, args, err = postgres.Builder.
			Insert("casino_stats").
			Columns("user_id", "total_plays", "total_wins", "total_wagered", "total_won", "biggest_win").
			Values(row.UserID, 1, win, postgres.Numeric(row.Stake), postgres.Numeric(row.Payout), postgres.Numeric(row.Payout)).
			Suffix(`ON CONFLICT (user_id) DO UPDATE SET
				total_plays = casino_stats.total_plays + 1,
				total_wins = casino_stats.total_wins + EXCLUDED.total_wins,
				total_wagered = casino_stats.total_wagered + EXCLUDED.total_wagered,
				total_won = casino_stats.total_won + EXCLUDED.total_won,
				biggest_win = GREATEST(casino_stats.biggest_win, EXCLUDED.biggest_win),
				updated_at = NOW()`).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("ошибка обновления статистики: %w", err)
		}
		return nil
	})
}

// LoadHistory возвращает последние limit раундов игрока (от старых к новым)
// и счётчики игр и побед.
func (r *Repository) LoadHistory(ctx context.Context, userID int64, limit int) ([]history.Record, history.Stats, error) {
	sqlStr, args, err := postgres.Builder.
		Select("round_id", "game_id", "bet", "result", "info", "balance_after", "created_at").
		From("casino_rounds").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, history.Stats{}, err
	}

	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	rows, err := conn.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, history.Stats{}, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var (
			rec          history.Record
			id           uuid.UUID
			result       string
			bet, balance pgtype.Numeric
		)
		if err := rows.Scan(&id, &rec.GameID, &bet, &result, &rec.Info, &balance, &rec.Time); err != nil {
			return nil, history.Stats{}, fmt.Errorf("ошибка чтения раунда: %w", err)
		}
		rec.RoundID = id
		rec.Result = history.Result(result)
		rec.Bet = postgres.Decimal(bet)
		rec.BalanceAfter = postgres.Decimal(balance)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, history.Stats{}, err
	}
	slices.Reverse(records)

	stats, err := r.GetStats(ctx, userID)
	if err != nil {
		return nil, history.Stats{}, err
	}
	return records, history.Stats{Plays: stats.TotalPlays, Wins: stats.TotalWins}, nil
}

// GetStats возвращает статистику казино игрока. Нет строки — нулевая статистика.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	sqlStr, args, err := postgres.Builder.
		Select("user_id", "total_plays", "total_wins", "total_wagered", "total_won", "biggest_win", "updated_at").
		From("casino_stats").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		s                     Stats
		wagered, won, biggest pgtype.Numeric
	)
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	err = conn.QueryRow(ctx, sqlStr, args...).Scan(
		&s.UserID, &s.TotalPlays, &s.TotalWins, &wagered, &won, &biggest, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Stats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	s.TotalWagered = postgres.Decimal(wagered)
	s.TotalWon = postgres.Decimal(won)
	s.BiggestWin = postgres.Decimal(biggest)
	return &s, nil
}

// PruneHistory удаляет раунды сверх limit у каждого игрока.
// Возвращает число удалённых строк.
func (r *Repository) PruneHistory(ctx context.Context, limit int) (int64, error) {
	sqlStr, args, err := postgres.Builder.
		Delete("casino_rounds").
		Where(sq.Expr(`id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn
				FROM casino_rounds
			) ranked WHERE ranked.rn > ?)`, limit)).
		ToSql()
	if err != nil {
		return 0, err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки истории: %w", err)
	}
	return tag.RowsAffected(), nil
}
