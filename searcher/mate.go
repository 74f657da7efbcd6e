package searcher

import (
	"dobutsu/game"
)

// bounds records what is known about a position: the attacker wins within
// any depth >= proved, and does not within any depth <= failed.
type bounds struct {
	proved int
	failed int
}

// MateSolver looks for a forced win of the side to move within a fixed
// number of plies. Positions are cached by hash for the duration of one
// call.
type MateSolver struct {
	depth    int
	attacker game.Side
	table    map[game.StateHash]bounds
}

func NewMateSolver(depth int) *MateSolver {
	return &MateSolver{depth: depth}
}

// Solve returns the first move, in move generation order, after which the
// side to move wins within the solver depth whatever the opponent replies.
func (s *MateSolver) Solve(p game.Position) (game.Move, bool) {
	if s.depth <= 0 || p.Outcome().Over {
		return game.Move{}, false
	}
	s.attacker = p.Turn()
	s.table = make(map[game.StateHash]bounds)
	defer func() { s.table = nil }()

	for _, move := range p.LegalMoves() {
		if s.wins(p.Play(move), s.depth-1) {
			return move, true
		}
	}
	return game.Move{}, false
}

// SolveMate is a one-shot Solve.
func SolveMate(p game.Position, depth int) (game.Move, bool) {
	return NewMateSolver(depth).Solve(p)
}

// wins reports whether the attacker forces a win from p within depth plies.
// Running out of depth, or a defender with no move, counts as not proven.
func (s *MateSolver) wins(p game.Position, depth int) bool {
	if outcome := p.Outcome(); outcome.Over {
		return outcome.Winner == s.attacker
	}
	if depth <= 0 {
		return false
	}

	hash := p.Hash()
	b, ok := s.table[hash]
	if !ok {
		b = bounds{proved: s.depth + 1, failed: -1}
	}
	if depth >= b.proved {
		return true
	}
	if depth <= b.failed {
		return false
	}

	moves := p.LegalMoves()
	var result bool
	if p.Turn() == s.attacker {
		result = false
		for _, move := range moves {
			if s.wins(p.Play(move), depth-1) {
				result = true
				break
			}
		}
	} else {
		result = len(moves) > 0
		for _, move := range moves {
			if !s.wins(p.Play(move), depth-1) {
				result = false
				break
			}
		}
	}

	if result {
		b.proved = min(b.proved, depth)
	} else {
		b.failed = max(b.failed, depth)
	}
	s.table[hash] = b
	return result
}
