package casino

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/economy"
)

// doubleSlip — ставки на цвета до спина. Списываются одной суммой при спине.
type doubleSlip struct {
	theme  config.DoubleTheme
	stakes map[string]decimal.Decimal
}

func (d *doubleSlip) total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range d.stakes {
		sum = sum.Add(v)
	}
	return sum
}

// PlaceStake добавляет ставку amount на цвет color. Ставки на один и разные
// цвета копятся до спина, но их сумма не может превысить баланс.
// Возвращает текущий купон.
func (s *Service) PlaceStake(ctx context.Context, userID int64, gameID, color string, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	game, err := s.Game(gameID, KindDouble)
	if err != nil {
		return nil, err
	}
	theme := s.rules.games.Double.Themes[game.Theme]
	color = strings.ToLower(strings.TrimSpace(color))
	if color != theme.Low && color != theme.High && color != theme.Zero {
		return nil, fmt.Errorf("%w: цвет %q, доступны %s, %s и %s",
			common.ErrInvalidConfiguration, color, theme.Low, theme.High, theme.Zero)
	}
	if err := s.rules.validateStake(KindDouble, amount); err != nil {
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
	defer t.mu.Unlock()

	if t.session != nil && (t.session.Kind != KindDouble || t.session.GameID != gameID || t.session.State != StateStakeCommitted) {
		return nil, fmt.Errorf("%w: %s ещё не закончен", common.ErrReentrantRound, t.session.GameID)
	}

	total := amount
	if t.double != nil {
		total = total.Add(t.double.total())
	}
	if !l.Covers(total) {
		return nil, fmt.Errorf("%w: ставки на %s при балансе %s", common.ErrInsufficientFunds,
			common.FormatBalance(total), common.FormatBalance(l.Balance()))
	}

	if t.session == nil {
		if _, err := t.begin(KindDouble, gameID, decimal.Zero, false); err != nil {
			return nil, err
		}
		t.double = &doubleSlip{theme: theme, stakes: make(map[string]decimal.Decimal)}
	}
	t.double.stakes[color] = t.double.stakes[color].Add(amount)
	t.session.Stake = total
	t.bets[gameID] = amount
	return maps.Clone(t.double.stakes), nil
}

// ClearStakes снимает несписанные ставки дабла.
func (s *Service) ClearStakes(ctx context.Context, userID int64) error {
	t, err := s.table(ctx, userID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess := t.session
	if sess == nil || sess.Kind != KindDouble {
		return fmt.Errorf("%w: ставок на дабл нет", common.ErrNoOpenRound)
	}
	if err := sess.advance(StateIdle); err != nil {
		return fmt.Errorf("%w: колесо уже крутится", common.ErrReentrantRound)
	}
	t.release(sess)
	return nil
}

// SpinDouble списывает все ставки купона, крутит колесо и рассчитывает
// их по одному сектору.
func (s *Service) SpinDouble(ctx context.Context, userID int64) (*Settlement, error) {
	l, err := s.accounts.Ledger(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	sess := t.session
	if sess == nil || sess.Kind != KindDouble || sess.State != StateStakeCommitted || t.double == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: сначала сделайте ставку командой !ставка", common.ErrNoOpenRound)
	}
	slip := t.double
	sess.Stake = slip.total()
	if _, err := l.Debit(sess.Stake, economy.TxTypeCasinoBet, "Ставка: "+sess.GameID); err != nil {
		// Купон остаётся: можно снять часть ставок или пополнить счёт.
		t.mu.Unlock()
		return nil, err
	}
	_ = sess.advance(StateDrawing)
	s.open(ctx, userID, sess.GameID)
	pocket := rng.Wheel(s.src, s.rules.games.Double.Pockets)
	t.mu.Unlock()

	wait(ctx, s.cfg.DoubleSpinDelay)

	t.mu.Lock()
	defer t.mu.Unlock()
	return s.settle(ctx, t, l, sess, func() (outcome, error) {
		return s.doubleOutcome(slip, pocket, sess.Stake)
	}), nil
}

func (s *Service) doubleOutcome(slip *doubleSlip, pocket int, total decimal.Decimal) (outcome, error) {
	if pocket < 0 || pocket >= s.rules.games.Double.Pockets {
		return outcome{}, fmt.Errorf("%w: сектор %d", common.ErrOutcomeGenerator, pocket)
	}
	color := s.rules.doubleColor(slip.theme, pocket)
	won := payout.Double(slip.stakes, color, s.rules.doubleMultiplier(slip.theme, color))

	out := outcome{
		payout: won,
		win:    won.IsPositive(),
		detail: &DoubleOutcome{Pocket: pocket, Color: color, Stakes: maps.Clone(slip.stakes)},
	}
	if out.win {
		out.bet = total
		out.info = fmt.Sprintf("Цвет: %s → +%s", strings.ToUpper(color), common.FormatAmount(won))
	} else {
		out.bet = total.Neg()
		out.info = fmt.Sprintf("Цвет: %s", strings.ToUpper(color))
	}
	return out, nil
}
