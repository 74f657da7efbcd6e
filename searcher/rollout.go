package searcher

import (
	"dobutsu/experiments/metrics"
	"dobutsu/game"

	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

const (
	baseWeight      = 1.0
	promotionWeight = 20.0
	tryWeight       = 100.0
)

// moveWeight favours captures by the value of the captured piece, promotions
// and Lion moves into the far row.
func moveWeight(p game.Position, m game.Move) float64 {
	weight := baseWeight + float64(p.Captures(m).Value())
	if m.Promote {
		weight += promotionWeight
	}
	if p.IsTry(m) {
		weight += tryWeight
	}
	return weight
}

func pickWeighted(p game.Position, moves []game.Move, rng *rand.Rand) game.Move {
	weights := lo.Map(moves, func(m game.Move, _ int) float64 {
		return moveWeight(p, m)
	})
	r := rng.Float64() * lo.Sum(weights)
	for i, w := range weights {
		r -= w
		if r < 0 {
			return moves[i]
		}
	}
	return moves[len(moves)-1]
}

// rollout plays weighted random moves from p for at most cutoff plies. An
// undecided result (cap reached, or no legal move) is a draw.
func rollout(p game.Position, cutoff int, rng *rand.Rand, metrics metrics.Collector) game.Outcome {
	for ply := 0; ply < cutoff; ply++ {
		if outcome := p.Outcome(); outcome.Over {
			metrics.AddFullPlayout()
			return outcome
		}
		moves := p.LegalMoves()
		if len(moves) == 0 {
			return game.Outcome{}
		}
		p = p.Play(pickWeighted(p, moves, rng))
	}

	outcome := p.Outcome()
	if outcome.Over {
		metrics.AddFullPlayout()
	}
	return outcome
}
