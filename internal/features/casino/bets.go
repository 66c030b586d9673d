package casino

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
)

// Bet возвращает выбранную ставку игры (минимальную, если игрок её не менял).
func (s *Service) Bet(ctx context.Context, userID int64, gameID string) (decimal.Decimal, error) {
	kind, err := s.kindOf(gameID)
	if err != nil {
		return decimal.Zero, err
	}
	t, err := s.table(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bet(gameID, s.rules.minStakeFor(kind)), nil
}

// AdjustBet двигает ставку игры на шаг таблицы вверх или вниз
// и держит её в границах минимальной и максимальной. Пока в слоте
// остаются фриспины, ставка этого слота заморожена.
func (s *Service) AdjustBet(ctx context.Context, userID int64, gameID string, up bool) (decimal.Decimal, error) {
	kind, err := s.kindOf(gameID)
	if err != nil {
		return decimal.Zero, err
	}
	t, err := s.lockTable(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	defer t.mu.Unlock()

	if kind == KindSlots && t.freeSpins[gameID] > 0 {
		return decimal.Zero, fmt.Errorf("%w: ставку нельзя менять во время фриспинов (осталось %d)",
			common.ErrInvalidStake, t.freeSpins[gameID])
	}
	bet := t.bet(gameID, s.rules.minStakeFor(kind))
	if up {
		bet = s.rules.stepUp(kind, bet)
	} else {
		bet = s.rules.stepDown(kind, bet)
	}
	t.bets[gameID] = bet
	return bet, nil
}

func (s *Service) kindOf(gameID string) (GameKind, error) {
	g, ok := s.rules.games.Game(gameID)
	if !ok {
		return "", fmt.Errorf("%w: неизвестная игра %q", common.ErrInvalidConfiguration, gameID)
	}
	return GameKind(g.Kind), nil
}
