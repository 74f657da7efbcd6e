package game

var pieceValues = [numKinds]int{Chick: 10, Giraffe: 40, Elephant: 40, Lion: 1000, Hen: 50}

// Value returns the material value of a piece kind.
func (k Kind) Value() int {
	if k < 0 || k >= numKinds {
		return 0
	}
	return pieceValues[k]
}

// Material tallies board and hand material of each side (Lions excluded),
// and returns a score between -1 and 1 from the perspective of the side to
// move.
func (p Position) Material() float64 {
	var totals [2]float64
	for _, side := range [...]Side{First, Second} {
		for _, kind := range [...]Kind{Chick, Giraffe, Elephant, Hen} {
			totals[side] += float64(p.pieces[side][kind].Count() * kind.Value())
			totals[side] += float64(int(p.hands[side][kind]) * kind.Value())
		}
	}
	return normalize(totals[p.turn], totals[p.turn.Opponent()])
}

// normalize normalizes value relative to otherValue to a score between -1 and 1
func normalize(value float64, otherValue float64) float64 {
	total := value + otherValue
	if total == 0 {
		return 0
	}
	return (value - otherValue) / total
}
