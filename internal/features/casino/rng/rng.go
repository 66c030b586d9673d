// Package rng — генератор случайных исходов для всех игр казино.
// Исходы равномерные и без памяти: каждый вызов независим от предыдущих.
// Источник подменяется в тестах и симуляциях через интерфейс Source.
package rng

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Source — источник случайности.
type Source interface {
	// IntN возвращает равномерное целое в [0, n). n > 0.
	IntN(n int) int
	// Float64 возвращает равномерное число в [0, 1).
	Float64() float64
}

// globalSource использует общий генератор math/rand/v2 (ChaCha8 на поток).
type globalSource struct{}

// Default возвращает потокобезопасный источник для боевого режима.
func Default() Source { return globalSource{} }

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// seededSource — воспроизводимый PCG, защищённый мьютексом:
// шарики плинко тянут числа из разных горутин.
type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded возвращает детерминированный источник для симуляций RTP и тестов.
func NewSeeded(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Wheel возвращает сектор колеса дабла в [0, pockets).
func Wheel(src Source, pockets int) int {
	return src.IntN(pockets)
}

// Roll возвращает бросок дайса в [0, 100) с точностью до сотых.
func Roll(src Source) float64 {
	return math.Floor(src.Float64()*10000) / 100
}

// Bombs выбирает n разных клеток из cells частичной перестановкой Фишера–Йетса.
// Вызывающий обязан проверить 1 <= n < cells до вызова.
func Bombs(src Source, cells, n int) []int {
	deck := make([]int, cells)
	for i := range deck {
		deck[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + src.IntN(cells-i)
		deck[i], deck[j] = deck[j], deck[i]
	}
	out := make([]int, n)
	copy(out, deck[:n])
	return out
}

// Grid заполняет сетку 3x3 независимыми индексами символов.
func Grid(src Source, symbols int) [9]int {
	var g [9]int
	for i := range g {
		g[i] = src.IntN(symbols)
	}
	return g
}

// Chance возвращает true с вероятностью p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Jitter возвращает равномерное число в [-1, 1), горизонтальный толчок шарика.
func Jitter(src Source) float64 {
	return (src.Float64() - 0.5) * 2
}
