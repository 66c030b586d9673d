// Package economy — repository.go выполняет все операции с таблицами accounts и transactions.
// Изменение баланса и запись транзакции выполняются в одной транзакции БД.
package economy

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/db/postgres"
)

const (
	tableAccounts     = "accounts"
	tableTransactions = "transactions"
)

// Repository предоставляет методы для работы со счетами и транзакциями.
type Repository struct {
	db       *pgxpool.Pool
	tm       trm.Manager
	starting decimal.Decimal
}

// NewRepository создаёт репозиторий экономики.
// starting — сколько кредитов получает новый счёт.
func NewRepository(db *pgxpool.Pool, tm trm.Manager, starting decimal.Decimal) *Repository {
	return &Repository{db: db, tm: tm, starting: starting}
}

// GetAccount возвращает счёт игрока. Если счёта нет, создаёт его
// со стартовым балансом и записывает транзакцию starting_balance.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	var acc *Account
	err := r.tm.Do(ctx, func(ctx context.Context) error {
		conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)

		sqlStr, args, err := postgres.Builder.
			Insert(tableAccounts).
			Columns("user_id", "balance", "total_earned", "total_spent").
			Values(userID, postgres.Numeric(r.starting), postgres.Numeric(r.starting), postgres.Numeric(decimal.Zero)).
			Suffix("ON CONFLICT (user_id) DO NOTHING").
			ToSql()
		if err != nil {
			return err
		}
		tag, err := conn.Exec(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("ошибка создания счёта: %w", err)
		}
		if tag.RowsAffected() == 1 && r.starting.IsPositive() {
			if err := r.insertTransaction(ctx, userID, r.starting, TxTypeStartingBalance, "Стартовые кредиты"); err != nil {
				return err
			}
		}

		a, err := selectAccount(ctx, conn, userID)
		if err != nil {
			return err
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// FindAccount возвращает счёт без создания. Нет счёта — ErrAccountNotFound.
func (r *Repository) FindAccount(ctx context.Context, userID int64) (*Account, error) {
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	acc, err := selectAccount(ctx, conn, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", common.ErrAccountNotFound, userID)
	}
	return acc, err
}

func selectAccount(ctx context.Context, conn trmpgx.Tr, userID int64) (*Account, error) {
	sqlStr, args, err := postgres.Builder.
		Select("user_id", "username", "balance", "total_earned", "total_spent", "created_at", "updated_at").
		From(tableAccounts).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		a                      Account
		balance, earned, spent pgtype.Numeric
	)
	err = conn.QueryRow(ctx, sqlStr, args...).Scan(
		&a.UserID, &a.Username, &balance, &earned, &spent, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	a.Balance = postgres.Decimal(balance)
	a.TotalEarned = postgres.Decimal(earned)
	a.TotalSpent = postgres.Decimal(spent)
	return &a, nil
}

// ApplyDelta меняет баланс на delta и записывает транзакцию.
// Положительная delta увеличивает total_earned, отрицательная — total_spent.
// Проверка достаточности средств здесь не выполняется: её делает баланс в памяти.
func (r *Repository) ApplyDelta(ctx context.Context, userID int64, delta decimal.Decimal, txType, description string) error {
	return r.tm.Do(ctx, func(ctx context.Context) error {
		conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)

		upd := postgres.Builder.
			Update(tableAccounts).
			Set("balance", sq.Expr("balance + ?", postgres.Numeric(delta))).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"user_id": userID})
		if delta.IsPositive() {
			upd = upd.Set("total_earned", sq.Expr("total_earned + ?", postgres.Numeric(delta)))
		} else {
			upd = upd.Set("total_spent", sq.Expr("total_spent + ?", postgres.Numeric(delta.Neg())))
		}

		sqlStr, args, err := upd.ToSql()
		if err != nil {
			return err
		}
		tag, err := conn.Exec(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("ошибка изменения баланса: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("счёт %d не найден", userID)
		}

		return r.insertTransaction(ctx, userID, delta, txType, description)
	})
}

// SetUsername запоминает имя игрока для отображения.
func (r *Repository) SetUsername(ctx context.Context, userID int64, username string) error {
	sqlStr, args, err := postgres.Builder.
		Update(tableAccounts).
		Set("username", username).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.NotEq{"username": username}).
		ToSql()
	if err != nil {
		return err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("ошибка обновления имени: %w", err)
	}
	return nil
}

// GetTransactions возвращает последние limit транзакций игрока, новые первыми.
func (r *Repository) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	sqlStr, args, err := postgres.Builder.
		Select("id", "user_id", "amount", "transaction_type", "description", "created_at").
		From(tableTransactions).
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
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		var (
			tx     Transaction
			amount pgtype.Numeric
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.TransactionType, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения транзакции: %w", err)
		}
		tx.Amount = postgres.Decimal(amount)
		transactions = append(transactions, &tx)
	}
	return transactions, rows.Err()
}

func (r *Repository) insertTransaction(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	sqlStr, args, err := postgres.Builder.
		Insert(tableTransactions).
		Columns("user_id", "amount", "transaction_type", "description").
		Values(userID, postgres.Numeric(amount), txType, description).
		ToSql()
	if err != nil {
		return err
	}
	conn := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, r.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}
