package game

// LegalMoves returns every legal move for the side to move: board moves first
// (by kind, then source square, then destination), then drops (by
// destination, then kind). Dropping or moving is never illegal because it
// leaves the Lion capturable.
func (p Position) LegalMoves() []Move {
	side := p.turn
	own := p.Occupied(side)
	zone := promotionZone(side)
	moves := make([]Move, 0, 32)

	for _, kind := range Kinds {
		pieces := p.pieces[side][kind]
		for pieces != 0 {
			src := pieces.Lowest()
			pieces &= pieces - 1

			targets := Steps(side, kind, src) &^ own
			for targets != 0 {
				dst := targets.Lowest()
				targets &= targets - 1
				// A Chick landing on the far row always promotes.
				promote := kind == Chick && zone.Has(dst)
				moves = append(moves, BoardMove(src, dst, promote))
			}
		}
	}

	var held []Kind
	for _, kind := range [...]Kind{Chick, Giraffe, Elephant} {
		if p.hands[side][kind] > 0 {
			held = append(held, kind)
		}
	}
	if len(held) == 0 {
		return moves
	}
	empty := p.Empty()
	for empty != 0 {
		dst := empty.Lowest()
		empty &= empty - 1
		for _, kind := range held {
			// A Chick dropped on the far row could never move again.
			if kind == Chick && zone.Has(dst) {
				continue
			}
			moves = append(moves, DropMove(kind, dst))
		}
	}
	return moves
}

// Attacked reports whether any board piece of the attacker could move onto
// square s in one step. It uses the same step tables as LegalMoves.
func (p Position) Attacked(s Square, attacker Side) bool {
	for _, kind := range Kinds {
		pieces := p.pieces[attacker][kind]
		for pieces != 0 {
			src := pieces.Lowest()
			pieces &= pieces - 1
			if Steps(attacker, kind, src).Has(s) {
				return true
			}
		}
	}
	return false
}
