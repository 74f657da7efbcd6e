package game

// Outcome describes whether a position ends the game and who won.
type Outcome struct {
	Over   bool
	Winner Side // meaningful only when Over
}

// Outcome checks, in order: a missing Lion loses immediately, then the try
// rule for First, then for Second.
//
// A Lion standing in the opponent's home row wins once its own move is over
// unless the opponent, now to move, can capture it with a single board move.
// If the Lion's side is to move again the opponent's reply already failed to
// capture it, so the try stands. Only the immediate recapture is considered.
func (p Position) Outcome() Outcome {
	if p.pieces[First][Lion] == 0 {
		return Outcome{Over: true, Winner: Second}
	}
	if p.pieces[Second][Lion] == 0 {
		return Outcome{Over: true, Winner: First}
	}

	for _, side := range [...]Side{First, Second} {
		if p.tried(side) {
			return Outcome{Over: true, Winner: side}
		}
	}
	return Outcome{}
}

func (p Position) tried(side Side) bool {
	lion := p.pieces[side][Lion]
	if lion&promotionZone(side) == 0 {
		return false
	}
	if p.turn == side {
		return true
	}
	return !p.Attacked(lion.Lowest(), side.Opponent())
}

// IsTry reports whether a Lion move lands in the opponent's home row.
func (p Position) IsTry(m Move) bool {
	if m.Drop || !p.pieces[p.turn][Lion].Has(m.Src) {
		return false
	}
	return promotionZone(p.turn).Has(m.Dst)
}
