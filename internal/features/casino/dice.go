package casino

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
)

const diceGameID = "dice"

// validateChance проверяет шанс дайса: от 1 до 98, не больше двух знаков.
func (r *rules) validateChance(chance decimal.Decimal) error {
	if !chance.Equal(chance.Truncate(2)) {
		return fmt.Errorf("%w: шанс с точностью до сотых", common.ErrInvalidConfiguration)
	}
	if chance.LessThan(r.minChance) || chance.GreaterThan(r.maxChance) {
		return fmt.Errorf("%w: шанс от %s до %s%%", common.ErrInvalidConfiguration, r.minChance, r.maxChance)
	}
	return nil
}

// DiceMultiplier — множитель выигрыша при шансе chance.
func (s *Service) DiceMultiplier(chance decimal.Decimal) (decimal.Decimal, error) {
	if err := s.rules.validateChance(chance); err != nil {
		return decimal.Zero, err
	}
	return payout.DiceMultiplier(s.rules.diceNum, chance), nil
}

// RollDice ставит stake с шансом chance и бросает кубик.
// Выигрыш, если выпало строго меньше шанса.
func (s *Service) RollDice(ctx context.Context, userID int64, stake, chance decimal.Decimal) (*Settlement, error) {
	if err := s.rules.validateChance(chance); err != nil {
		return nil, err
	}
	if err := s.rules.validateStake(KindDice, stake); err != nil {
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
	sess, err := t.begin(KindDice, diceGameID, stake, false)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if err := s.commit(t, l, sess, "Ставка: дайс"); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	s.open(ctx, userID, diceGameID)
	t.bets[diceGameID] = stake
	roll := decimal.NewFromFloat(rng.Roll(s.src)).Truncate(2)
	t.mu.Unlock()

	wait(ctx, s.cfg.DiceRollDelay)

	t.mu.Lock()
	defer t.mu.Unlock()
	return s.settle(ctx, t, l, sess, func() (outcome, error) {
		return s.diceOutcome(stake, chance, roll)
	}), nil
}

func (s *Service) diceOutcome(stake, chance, roll decimal.Decimal) (outcome, error) {
	if roll.IsNegative() || !roll.LessThan(decimal.NewFromInt(100)) {
		return outcome{}, fmt.Errorf("%w: бросок %s", common.ErrOutcomeGenerator, roll)
	}
	mult := payout.DiceMultiplier(s.rules.diceNum, chance)
	won, win := payout.Dice(stake, chance, roll, s.rules.diceNum)

	out := outcome{
		payout: won,
		win:    win,
		detail: &DiceOutcome{Chance: chance, Roll: roll, Multiplier: mult.Round(2), Win: win},
	}
	if win {
		out.bet = stake
		out.info = fmt.Sprintf("Бросок %s < %s → +%s", roll.StringFixed(2), chance.StringFixed(2), common.FormatAmount(won))
	} else {
		out.bet = stake.Neg()
		out.info = fmt.Sprintf("Бросок %s ≥ %s", roll.StringFixed(2), chance.StringFixed(2))
	}
	return out, nil
}
