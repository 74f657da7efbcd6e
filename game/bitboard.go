package game

import (
	"fmt"
	"math/bits"
)

const (
	Rows       = 4
	Columns    = 3
	NumSquares = Rows * Columns
)

// Square indexes the board in row-major order: 0 is A1 (Second's home row,
// left column) and 11 is C4.
type Square int8

const NoSquare Square = -1

func NewSquare(row, col int) Square {
	return Square(row*Columns + col)
}

func (s Square) Row() int { return int(s) / Columns }
func (s Square) Col() int { return int(s) % Columns }

// Reflect rotates the square 180 degrees about the board centre.
func (s Square) Reflect() Square {
	return NumSquares - 1 - s
}

func (s Square) Valid() bool {
	return s >= 0 && s < NumSquares
}

func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return fmt.Sprintf("%c%d", 'A'+s.Col(), s.Row()+1)
}

// ParseSquare parses names like "B3".
func ParseSquare(name string) (Square, error) {
	if len(name) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	col := int(name[0] - 'A')
	if name[0] >= 'a' && name[0] <= 'c' {
		col = int(name[0] - 'a')
	}
	row := int(name[1] - '1')
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return NewSquare(row, col), nil
}

// Bitboard is a set of squares, bit i standing for Square(i).
type Bitboard uint16

const (
	fullBoard Bitboard = 1<<NumSquares - 1
	row1      Bitboard = 0b000_000_000_111
	row4      Bitboard = 0b111_000_000_000
)

func (b Bitboard) Has(s Square) bool {
	return b&(1<<uint(s)) != 0
}

func (b Bitboard) Count() int {
	return bits.OnesCount16(uint16(b))
}

// Lowest returns the lowest square in the set; the set must be non-empty.
func (b Bitboard) Lowest() Square {
	return Square(bits.TrailingZeros16(uint16(b)))
}

// Squares lists the members in ascending order.
func (b Bitboard) Squares() []Square {
	squares := make([]Square, 0, b.Count())
	for b != 0 {
		squares = append(squares, b.Lowest())
		b &= b - 1
	}
	return squares
}

// Reflect maps every member s to s.Reflect().
func (b Bitboard) Reflect() Bitboard {
	return Bitboard(bits.Reverse16(uint16(b)) >> (16 - NumSquares))
}

func bit(s Square) Bitboard {
	return 1 << uint(s)
}

// promotionZone is the row a side's Chick promotes on, which is also the
// opponent's home row and the target of a Lion try.
func promotionZone(side Side) Bitboard {
	if side == First {
		return row1
	}
	return row4
}

// Step offsets as (row, col) deltas seen from First; row -1 is forward.
var directions = [numKinds][][2]int{
	Chick:    {{-1, 0}},
	Giraffe:  {{-1, 0}, {1, 0}, {0, -1}, {0, 1}},
	Elephant: {{-1, -1}, {-1, 1}, {1, -1}, {1, 1}},
	Lion:     {{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}},
	Hen:      {{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, 0}},
}

// stepTable[side][kind][square] is the set of squares a piece reaches in one
// step. Second's entries are First's entries looked up at the reflected
// source square and reflected back.
var stepTable [2][numKinds][NumSquares]Bitboard

func init() {
	for _, kind := range Kinds {
		for s := Square(0); s < NumSquares; s++ {
			var mask Bitboard
			for _, d := range directions[kind] {
				row, col := s.Row()+d[0], s.Col()+d[1]
				if row >= 0 && row < Rows && col >= 0 && col < Columns {
					mask |= bit(NewSquare(row, col))
				}
			}
			stepTable[First][kind][s] = mask
		}
		for s := Square(0); s < NumSquares; s++ {
			stepTable[Second][kind][s] = stepTable[First][kind][s.Reflect()].Reflect()
		}
	}
}

// Steps returns the squares a piece of the given side and kind on square s
// can step to, ignoring occupancy.
func Steps(side Side, kind Kind, s Square) Bitboard {
	return stepTable[side][kind][s]
}
