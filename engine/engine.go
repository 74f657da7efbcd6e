package engine

import (
	"context"
	"time"

	"dobutsu/experiments/metrics"
	"dobutsu/game"
)

type Engine interface {
	// Run plays a game till there's a winner or a max number of moves is reached
	Run(ctx context.Context) (outcome game.Outcome, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}

// Agent picks moves. A Finish without a move means the agent resigns.
type Agent interface {
	FindMove(ctx context.Context, pos game.Position, budget time.Duration) (Finish, error)
}
