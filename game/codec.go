package game

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	ErrBoardLength = errors.New("board must have 12 squares")
	ErrHandsLength = errors.New("hands must have 12 slots")
	ErrSide        = errors.New("side to move must be +1 or -1")
	ErrPieceCode   = errors.New("invalid piece code")
	ErrPieceCount  = errors.New("impossible piece count")
	ErrOverlap     = errors.New("two pieces share a square")
)

// FromArrays builds a Position from the interchange form: 12 signed board
// codes, 12 hand slots (0..5 First by kind code, 6..11 Second) and the sign
// of the side to move. Every problem found is reported; nothing is repaired.
func FromArrays(board []int, hands []int, sideSign int) (Position, error) {
	var result *multierror.Error
	if len(board) != NumSquares {
		result = multierror.Append(result, errors.Wrapf(ErrBoardLength, "got %d", len(board)))
	}
	if len(hands) != 2*numKinds {
		result = multierror.Append(result, errors.Wrapf(ErrHandsLength, "got %d", len(hands)))
	}
	side, ok := SideFromSign(sideSign)
	if !ok {
		result = multierror.Append(result, errors.Wrapf(ErrSide, "got %d", sideSign))
	}
	if result != nil {
		return Position{}, result.ErrorOrNil()
	}

	var p Position
	p.turn = side
	for i, code := range board {
		if code == 0 {
			continue
		}
		kind := Kind(code)
		owner := First
		if code < 0 {
			kind, owner = Kind(-code), Second
		}
		if !kind.valid() {
			result = multierror.Append(result, errors.Wrapf(ErrPieceCode, "square %s holds %d", Square(i), code))
			continue
		}
		p.pieces[owner][kind] |= bit(Square(i))
	}

	for _, owner := range [...]Side{First, Second} {
		offset := int(owner) * numKinds
		if n := hands[offset]; n != 0 {
			result = multierror.Append(result, errors.Wrapf(ErrPieceCode, "%s hand slot 0 holds %d", owner, n))
		}
		for _, kind := range Kinds {
			n := hands[offset+int(kind)]
			switch {
			case n < 0:
				result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%s holds %d %s", owner, n, kind))
			case n > 0 && kind == Hen:
				result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%s holds a hen in hand", owner))
			case n > initialTotals[kind.Demoted()]:
				result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%s holds %d %s", owner, n, kind))
			default:
				p.hands[owner][kind] = uint8(n)
			}
		}
	}
	if result != nil {
		return Position{}, result.ErrorOrNil()
	}

	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Validate checks the board invariants: pieces are disjoint, each side has
// at most one Lion on the board, no hand holds a Hen, and no kind exceeds
// its initial count across board and hands.
func (p Position) Validate() error {
	var result *multierror.Error

	var seen Bitboard
	for _, side := range [...]Side{First, Second} {
		for _, kind := range Kinds {
			if overlap := seen & p.pieces[side][kind]; overlap != 0 {
				result = multierror.Append(result, errors.Wrapf(ErrOverlap, "at %v", overlap.Squares()))
			}
			seen |= p.pieces[side][kind]
		}
		if n := p.pieces[side][Lion].Count(); n > 1 {
			result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%s has %d lions on the board", side, n))
		}
		if p.hands[side][Hen] != 0 {
			result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%s holds a hen in hand", side))
		}
	}

	totals := p.totals()
	for _, kind := range [...]Kind{Chick, Giraffe, Elephant, Lion} {
		if totals[kind] > initialTotals[kind] {
			result = multierror.Append(result, errors.Wrapf(ErrPieceCount, "%d %s pieces, at most %d", totals[kind], kind, initialTotals[kind]))
		}
	}
	return result.ErrorOrNil()
}

// totals counts board and hand pieces per kind across both sides, Hens
// counted as Chicks.
func (p Position) totals() [numKinds]int {
	var totals [numKinds]int
	for _, side := range [...]Side{First, Second} {
		for _, kind := range Kinds {
			totals[kind.Demoted()] += p.pieces[side][kind].Count() + int(p.hands[side][kind])
		}
	}
	return totals
}

// Conserved reports whether every kind is present in its initial number,
// which holds for every position reachable from NewPosition.
func (p Position) Conserved() bool {
	return p.totals() == initialTotals
}
