package player

import (
	"context"
	"sync"
	"time"

	"dobutsu/engine"
	"dobutsu/game"

	"golang.org/x/exp/rand"
)

// SourceRandom marks moves chosen without any search.
const SourceRandom engine.Source = "random"

// Player picks a uniformly random legal move. It is the weakest opponent in
// self-play experiments.
type Player struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlayer creates a random player seeded with seed.
func NewPlayer(seed uint64) *Player {
	return &Player{rng: rand.New(rand.NewSource(seed))}
}

// FindMove ignores the budget. A position without legal moves gets no move,
// which the game loop treats as resignation.
func (p *Player) FindMove(ctx context.Context, pos game.Position, _ time.Duration) (engine.Finish, error) {
	if err := ctx.Err(); err != nil {
		return engine.Finish{}, err
	}
	finish := engine.Finish{
		SessionID:  engine.NoSession,
		SideToMove: pos.Turn(),
		Source:     SourceRandom,
	}
	moves := pos.LegalMoves()
	if pos.Outcome().Over || len(moves) == 0 {
		return finish, nil
	}

	p.mu.Lock()
	move := moves[p.rng.Intn(len(moves))]
	p.mu.Unlock()

	finish.Move = &move
	finish.WinRate = 0.5
	return finish, nil
}
