package game

// Each kind has two pieces in play, so a hand holds at most two of a kind.
const maxHand = 2

type zobristTable struct {
	pieces [2][numKinds][NumSquares]uint64
	hands  [2][numKinds][maxHand + 1]uint64
	second uint64
}

var zobrist = newZobristTable(0x9e3779b97f4a7c15)

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func newZobristTable(seed uint64) *zobristTable {
	rng := splitmix64{state: seed}
	z := &zobristTable{}
	for side := range z.pieces {
		for kind := range z.pieces[side] {
			for s := range z.pieces[side][kind] {
				z.pieces[side][kind][s] = rng.next()
			}
			// count 0 keeps key 0 so empty hands leave the hash alone
			for n := 1; n <= maxHand; n++ {
				z.hands[side][kind][n] = rng.next()
			}
		}
	}
	z.second = rng.next()
	return z
}

// Hash identifies the position by pieces, hands and side to move; the move
// count is ignored. It does not allocate.
func (p Position) Hash() StateHash {
	var hash uint64
	for side := range p.pieces {
		for kind := range p.pieces[side] {
			for b := p.pieces[side][kind]; b != 0; b &= b - 1 {
				hash ^= zobrist.pieces[side][kind][b.Lowest()]
			}
			hash ^= zobrist.hands[side][kind][min(int(p.hands[side][kind]), maxHand)]
		}
	}
	if p.turn == Second {
		hash ^= zobrist.second
	}
	return StateHash(hash)
}
