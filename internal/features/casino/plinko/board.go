// Package plinko — физика доски плинко. Исход не разыгрывается напрямую,
// а получается из симуляции падения шарика сквозь ряды штырьков.
package plinko

import (
	"errors"
	"math"

	"serotonyl.ru/minicasino/internal/features/casino/rng"
)

// Геометрия доски в пикселях и физика одного кадра.
const (
	Width      = 450.0
	Height     = 480.0
	PinSpacing = 35.0
	StartY     = 60.0
	RowSpacing = 30.0
	PinRadius  = 5.0
	BallRadius = 7.0
	Gravity    = 0.1
	Bounce     = -0.3
	// Шарик приземлился, когда опустился ниже этой линии
	FloorY = Height - 30

	maxFrames = 20000
)

// ErrStuck — шарик не долетел до лунок за отведённое число кадров.
var ErrStuck = errors.New("шарик застрял на доске")

// Pin — штырёк.
type Pin struct {
	X, Y float64
}

// Frame — положение шарика на кадре, для анимации на клиенте.
type Frame struct {
	N    int
	X, Y float64
}

// Board — доска с заданным числом линий. После создания не меняется,
// поэтому одну доску могут читать несколько шариков сразу.
type Board struct {
	Rows int
	Pins []Pin
}

// NewBoard строит доску: в ряду r стоит r+2 штырька, ряды центрированы.
func NewBoard(rows int) *Board {
	b := &Board{Rows: rows}
	for r := 0; r < rows; r++ {
		n := r + 2
		startX := (Width - float64(n-1)*PinSpacing) / 2
		for c := 0; c < n; c++ {
			b.Pins = append(b.Pins, Pin{
				X: startX + float64(c)*PinSpacing,
				Y: StartY + float64(r)*RowSpacing,
			})
		}
	}
	return b
}

// Buckets — число лунок внизу доски.
func (b *Board) Buckets() int { return b.Rows + 1 }

// BucketAt возвращает лунку под координатой x.
func (b *Board) BucketAt(x float64) int {
	w := Width / float64(b.Buckets())
	i := int(math.Floor(x / w))
	if i < 0 {
		return 0
	}
	if i >= b.Buckets() {
		return b.Buckets() - 1
	}
	return i
}

// Drop симулирует падение одного шарика и возвращает номер лунки.
// observe вызывается на каждом кадре (может быть nil).
func (b *Board) Drop(src rng.Source, observe func(Frame)) (int, error) {
	x, y := Width/2, 20.0
	vx, vy := rng.Jitter(src), 1.0

	for n := 0; n < maxFrames; n++ {
		vy += Gravity
		y += vy
		x += vx

		for _, p := range b.Pins {
			if math.Hypot(x-p.X, y-p.Y) < BallRadius+PinRadius {
				vy *= Bounce
				vx = rng.Jitter(src)
				y = p.Y - (BallRadius + PinRadius)
			}
		}

		// Боковые стенки
		if x < BallRadius {
			x, vx = BallRadius, math.Abs(vx)
		} else if x > Width-BallRadius {
			x, vx = Width-BallRadius, -math.Abs(vx)
		}

		if observe != nil {
			observe(Frame{N: n, X: x, Y: y})
		}
		if y > FloorY {
			return b.BucketAt(x), nil
		}
	}
	return 0, ErrStuck
}
