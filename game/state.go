package game

import (
	"fmt"
	"strconv"
	"strings"
)

type StateHash uint64

// Position is one game state. It is a plain value: Play returns a new
// Position and never touches the receiver, so copies can be handed to other
// goroutines freely.
type Position struct {
	pieces    [2][numKinds]Bitboard // occupancy per side and kind
	hands     [2][numKinds]uint8    // captured pieces per side and kind
	turn      Side
	moveCount int
}

// NewPosition returns the standard starting position with First to move.
func NewPosition() Position {
	var p Position
	p.pieces[First][Elephant] = bit(9)
	p.pieces[First][Lion] = bit(10)
	p.pieces[First][Giraffe] = bit(11)
	p.pieces[First][Chick] = bit(7)

	p.pieces[Second][Giraffe] = bit(0)
	p.pieces[Second][Lion] = bit(1)
	p.pieces[Second][Elephant] = bit(2)
	p.pieces[Second][Chick] = bit(4)
	p.turn = First
	return p
}

// Turn returns the side to move.
func (p Position) Turn() Side { return p.turn }

// MoveCount returns the number of plies played to reach this position.
func (p Position) MoveCount() int { return p.moveCount }

// Pieces returns the squares holding pieces of the given side and kind.
func (p Position) Pieces(side Side, kind Kind) Bitboard {
	return p.pieces[side][kind]
}

// InHand returns how many pieces of the given kind the side holds.
func (p Position) InHand(side Side, kind Kind) int {
	return int(p.hands[side][kind])
}

// Occupied returns every square holding a piece of the side.
func (p Position) Occupied(side Side) Bitboard {
	var occ Bitboard
	for _, kind := range Kinds {
		occ |= p.pieces[side][kind]
	}
	return occ
}

// Empty returns every square holding no piece.
func (p Position) Empty() Bitboard {
	return ^(p.Occupied(First) | p.Occupied(Second)) & fullBoard
}

// At returns the piece on square s; ok is false for an empty square.
func (p Position) At(s Square) (side Side, kind Kind, ok bool) {
	for _, sd := range [...]Side{First, Second} {
		for _, k := range Kinds {
			if p.pieces[sd][k].Has(s) {
				return sd, k, true
			}
		}
	}
	return First, NoKind, false
}

// LionSquare returns the square of the side's Lion or NoSquare.
func (p Position) LionSquare(side Side) Square {
	lion := p.pieces[side][Lion]
	if lion == 0 {
		return NoSquare
	}
	return lion.Lowest()
}

// Play applies a move and returns the resulting position. The move must be
// one produced by LegalMoves for this position; anything else violates the
// board invariants and panics.
func (p Position) Play(m Move) Position {
	next := p
	side, opp := p.turn, p.turn.Opponent()

	if m.Drop {
		if !m.Kind.Droppable() || next.hands[side][m.Kind] == 0 {
			panic(fmt.Sprintf("drop of %s without one in hand", m.Kind))
		}
		if !p.Empty().Has(m.Dst) {
			panic(fmt.Sprintf("drop onto occupied square %s", m.Dst))
		}
		next.hands[side][m.Kind]--
		next.pieces[side][m.Kind] |= bit(m.Dst)
	} else {
		src, dst := bit(m.Src), bit(m.Dst)
		moved := NoKind
		for _, kind := range Kinds {
			if next.pieces[side][kind]&src != 0 {
				moved = kind
				break
			}
		}
		if moved == NoKind {
			panic(fmt.Sprintf("no %s piece on %s", side, m.Src))
		}
		if p.Occupied(side)&dst != 0 {
			panic(fmt.Sprintf("%s moves onto own piece at %s", side, m.Dst))
		}
		next.pieces[side][moved] &^= src
		if m.Promote {
			next.pieces[side][Hen] |= dst
		} else {
			next.pieces[side][moved] |= dst
		}

		for _, kind := range Kinds {
			if next.pieces[opp][kind]&dst != 0 {
				next.pieces[opp][kind] &^= dst
				next.hands[side][kind.Demoted()]++
				break
			}
		}
	}

	next.turn = opp
	next.moveCount++
	return next
}

// Captures returns the kind of piece the move would capture, or NoKind.
func (p Position) Captures(m Move) Kind {
	if m.Drop {
		return NoKind
	}
	side, kind, ok := p.At(m.Dst)
	if !ok || side == p.turn {
		return NoKind
	}
	return kind
}

// Board returns the interchange form: signed piece codes per square, 0 for
// empty, |code| = kind, positive for First.
func (p Position) Board() [NumSquares]int {
	var board [NumSquares]int
	for _, side := range [...]Side{First, Second} {
		for _, kind := range Kinds {
			for _, s := range p.pieces[side][kind].Squares() {
				board[s] = int(kind) * side.Sign()
			}
		}
	}
	return board
}

// Hands returns the interchange form of both hands: indices 0..5 hold First's
// counts by kind code, 6..11 Second's.
func (p Position) Hands() [2 * numKinds]int {
	var hands [2 * numKinds]int
	for _, kind := range Kinds {
		hands[kind] = int(p.hands[First][kind])
		hands[numKinds+int(kind)] = int(p.hands[Second][kind])
	}
	return hands
}

// Key serializes the board and the side to move, e.g.
// "-2,-4,-3,0,-1,0,0,1,0,3,4,2|1" for the starting position.
func (p Position) Key() string {
	board := p.Board()
	var sb strings.Builder
	for i, code := range board {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(code))
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(p.turn.Sign()))
	return sb.String()
}

func (p Position) String() string {
	var sb strings.Builder
	board := p.Board()
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			code := board[NewSquare(row, col)]
			switch {
			case code > 0:
				sb.WriteByte(Kind(code).Letter())
			case code < 0:
				sb.WriteByte(Kind(-code).Letter() + ('a' - 'A'))
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "hands first=%v second=%v turn=%s", p.hands[First][Chick:Lion], p.hands[Second][Chick:Lion], p.turn)
	return sb.String()
}
