package casino

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/plinko"
)

const plinkoGameID = "plinko"

// PlinkoBuckets возвращает множители лунок для риска и числа линий.
func (s *Service) PlinkoBuckets(risk string, rows int) ([]decimal.Decimal, error) {
	table, err := s.plinkoTable(risk, rows)
	if err != nil {
		return nil, err
	}
	return payout.PlinkoBuckets(table, rows, s.rules.plinkoFallback), nil
}

func (s *Service) plinkoTable(risk string, rows int) ([]decimal.Decimal, error) {
	table, ok := s.rules.plinkoRisks[risk]
	if !ok {
		return nil, fmt.Errorf("%w: риск low, medium или high", common.ErrInvalidConfiguration)
	}
	if !slices.Contains(s.rules.games.Plinko.Rows, rows) {
		return nil, fmt.Errorf("%w: линий может быть %v", common.ErrInvalidConfiguration, s.rules.games.Plinko.Rows)
	}
	return table, nil
}

// DropPlinko бросает шарик со ставкой stake. У каждого шарика свой раунд:
// шарики одного игрока падают одновременно и рассчитываются независимо.
// observe получает кадры падения и может быть nil.
func (s *Service) DropPlinko(ctx context.Context, userID int64, stake decimal.Decimal, risk string, rows int, observe func(plinko.Frame)) (*Settlement, error) {
	table, err := s.plinkoTable(risk, rows)
	if err != nil {
		return nil, err
	}
	if err := s.rules.validateStake(KindPlinko, stake); err != nil {
		return nil, err
	}

	l, err := s.accounts.Ledger(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.lockTable(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess, err := t.begin(KindPlinko, plinkoGameID, stake, false)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if err := s.commit(t, l, sess, "Ставка: плинко"); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	s.open(ctx, userID, plinkoGameID)
	t.bets[plinkoGameID] = stake
	t.mu.Unlock()

	board := s.rules.boards[rows]
	tick := s.cfg.PlinkoFrameTick
	bucket, dropErr := s.drop(board, s.src, func(f plinko.Frame) {
		if observe != nil {
			observe(f)
		}
		if tick > 0 && ctx.Err() == nil {
			time.Sleep(tick)
		}
	})
	if dropErr != nil {
		log.WithError(dropErr).WithField("ball_id", sess.ID).Warn("Шарик плинко не долетел")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return s.settle(ctx, t, l, sess, func() (outcome, error) {
		if dropErr != nil {
			return outcome{}, dropErr
		}
		if bucket < 0 || bucket >= board.Buckets() {
			return outcome{}, fmt.Errorf("%w: лунка %d", common.ErrOutcomeGenerator, bucket)
		}
		mult := payout.PlinkoBucket(table, rows, bucket, s.rules.plinkoFallback)
		won := payout.Plinko(stake, mult)

		out := outcome{
			payout: won,
			win:    !mult.LessThan(decimal.NewFromInt(1)),
			detail: &PlinkoOutcome{BallID: sess.ID, Risk: risk, Rows: rows, Bucket: bucket, Multiplier: mult},
		}
		if out.win {
			out.bet = stake
			out.info = fmt.Sprintf("x%s → +%s", mult.String(), common.FormatAmount(won))
		} else {
			// Частичный возврат: в истории только потерянная часть
			out.bet = stake.Sub(won).Neg()
			out.info = fmt.Sprintf("x%s", mult.String())
		}
		return out, nil
	}), nil
}
