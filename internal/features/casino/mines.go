package casino

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/economy"
)

const minesGameID = "mines"

// minesRound — поле текущего раунда мин. Бомбы выбираются один раз при старте.
type minesRound struct {
	stake    decimal.Decimal
	bombs    map[int]struct{}
	revealed []int
	hit      int
	ledger   *economy.Ledger
}

func (m *minesRound) isRevealed(cell int) bool {
	return slices.Contains(m.revealed, cell)
}

// StartMines ставит stake на поле с bombs бомбами. Число бомб вне [1, 24]
// отклоняется: подрезать ввод игрока — дело обработчика.
func (s *Service) StartMines(ctx context.Context, userID int64, stake decimal.Decimal, bombs int) (*MinesView, error) {
	mt := s.rules.games.Mines
	if bombs < mt.MinBombs || bombs > mt.MaxBombs || bombs >= s.rules.minesCells {
		return nil, fmt.Errorf("%w: бомб от %d до %d", common.ErrInvalidConfiguration, mt.MinBombs, mt.MaxBombs)
	}
	if err := s.rules.validateStake(KindMines, stake); err != nil {
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

	sess, err := t.begin(KindMines, minesGameID, stake, false)
	if err != nil {
		return nil, err
	}
	if err := s.commit(t, l, sess, "Ставка: мины"); err != nil {
		return nil, err
	}
	s.open(ctx, userID, minesGameID)
	t.bets[minesGameID] = stake

	round := &minesRound{
		stake:  stake,
		bombs:  make(map[int]struct{}, bombs),
		hit:    -1,
		ledger: l,
	}
	for _, cell := range rng.Bombs(s.src, s.rules.minesCells, bombs) {
		round.bombs[cell] = struct{}{}
	}
	t.mines = round
	if err := sess.advance(StateRevealing); err != nil {
		// Сюда не попасть из Drawing; раунд закрывается с возвратом ставки.
		st := s.settle(ctx, t, l, sess, func() (outcome, error) { return outcome{}, err })
		return nil, fmt.Errorf("%w: %s", common.ErrOutcomeGenerator, st.Summary)
	}

	view := s.minesView(round, false)
	return &view, nil
}

// RevealCell открывает клетку cell (0–24). Бомба заканчивает раунд проигрышем,
// последняя безопасная клетка — автоматическим выводом.
func (s *Service) RevealCell(ctx context.Context, userID int64, cell int) (*MinesStep, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, round, err := t.openMines()
	if err != nil {
		return nil, err
	}
	if cell < 0 || cell >= s.rules.minesCells {
		return nil, fmt.Errorf("%w: клетка от 1 до %d", common.ErrInvalidConfiguration, s.rules.minesCells)
	}
	if round.isRevealed(cell) {
		return nil, fmt.Errorf("%w: клетка %d уже открыта", common.ErrInvalidConfiguration, cell+1)
	}

	if _, bomb := round.bombs[cell]; bomb {
		round.hit = cell
		_ = sess.advance(StateLost)
		st := s.settle(ctx, t, round.ledger, sess, func() (outcome, error) {
			return outcome{
				bet:    round.stake.Neg(),
				info:   fmt.Sprintf("Взрыв на клетке %d • %d бомб", cell+1, len(round.bombs)),
				detail: ptr(s.minesView(round, true)),
			}, nil
		})
		return &MinesStep{View: s.minesView(round, true), Settlement: st}, nil
	}

	round.revealed = append(round.revealed, cell)
	_ = sess.advance(StateRevealing)

	if len(round.revealed) == s.rules.minesCells-len(round.bombs) {
		st := s.cashOut(ctx, t, sess, round)
		return &MinesStep{View: s.minesView(round, true), Settlement: st}, nil
	}
	return &MinesStep{View: s.minesView(round, false)}, nil
}

// CashOutMines забирает выигрыш по текущему множителю.
// Без единой открытой клетки вывести нельзя.
func (s *Service) CashOutMines(ctx context.Context, userID int64) (*Settlement, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, round, err := t.openMines()
	if err != nil {
		return nil, err
	}
	if len(round.revealed) == 0 {
		return nil, fmt.Errorf("%w: откройте хотя бы одну клетку", common.ErrInvalidConfiguration)
	}
	return s.cashOut(ctx, t, sess, round), nil
}

// MinesState возвращает поле текущего раунда мин.
func (s *Service) MinesState(ctx context.Context, userID int64) (*MinesView, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	_, round, err := t.openMines()
	if err != nil {
		return nil, err
	}
	view := s.minesView(round, false)
	return &view, nil
}

// cashOut вызывается под t.mu.
func (s *Service) cashOut(ctx context.Context, t *table, sess *RoundSession, round *minesRound) *Settlement {
	_ = sess.advance(StateCashedOut)
	return s.settle(ctx, t, round.ledger, sess, func() (outcome, error) {
		n := len(round.revealed)
		won := payout.Mines(round.stake, s.rules.minesCells, len(round.bombs), n, s.rules.minesFactor)
		mult := payout.MinesMultiplier(s.rules.minesCells, len(round.bombs), n, s.rules.minesFactor)
		return outcome{
			payout: won,
			win:    true,
			bet:    round.stake,
			info:   fmt.Sprintf("%d клеток • %d бомб • x%s → +%s", n, len(round.bombs), mult.StringFixed(2), common.FormatAmount(won)),
			detail: ptr(s.minesView(round, true)),
		}, nil
	})
}

func (t *table) openMines() (*RoundSession, *minesRound, error) {
	sess := t.session
	if sess == nil || sess.Kind != KindMines || sess.State != StateRevealing || t.mines == nil {
		return nil, nil, fmt.Errorf("%w: начните игру командой !мины", common.ErrNoOpenRound)
	}
	return sess, t.mines, nil
}

func (s *Service) minesView(round *minesRound, finished bool) MinesView {
	n := len(round.revealed)
	v := MinesView{
		Bombs:      len(round.bombs),
		Revealed:   slices.Clone(round.revealed),
		Hit:        round.hit,
		Multiplier: payout.MinesMultiplier(s.rules.minesCells, len(round.bombs), n, s.rules.minesFactor),
		Finished:   finished,
	}
	if n > 0 && round.hit < 0 {
		v.CashOut = payout.Mines(round.stake, s.rules.minesCells, len(round.bombs), n, s.rules.minesFactor)
	}
	if finished {
		for cell := range round.bombs {
			v.BombCells = append(v.BombCells, cell)
		}
		slices.Sort(v.BombCells)
	}
	return v
}

func ptr[T any](v T) *T { return &v }
