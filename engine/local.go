package engine

import (
	"context"
	"time"

	"dobutsu/experiments/metrics"
	"dobutsu/game"
	"dobutsu/meta"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Player is an agent with its per-move time budget.
type Player struct {
	Agent  Agent
	Budget time.Duration
}

// LocalGame plays a whole game between two agents in process.
type LocalGame struct {
	Position game.Position
	Players  [2]Player // indexed by game.Side
	MaxTurns int
}

func LocalEngine(first, second Player) *LocalGame {
	if first.Agent == nil || second.Agent == nil {
		panic("need two agents")
	}
	return &LocalGame{
		Position: game.NewPosition(),
		Players:  [2]Player{first, second},
		MaxTurns: meta.MAX_TURNS,
	}
}

// Run executes the game loop until a side wins, a side resigns, or MaxTurns
// plies have been played, which is a draw.
func (e *LocalGame) Run(ctx context.Context) (game.Outcome, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{StartTime: time.Now()}
	var moveMetrics []metrics.MoveMetric

	log.Info().Msgf("%s is starting", e.Position.Turn())

	outcome := e.Position.Outcome()
	for turn := 1; !outcome.Over && turn <= e.MaxTurns; turn++ {
		side := e.Position.Turn()
		player := e.Players[side]

		finish, err := player.Agent.FindMove(ctx, e.Position, player.Budget)
		if err != nil {
			return game.Outcome{}, gameMetric, moveMetrics, errors.Wrapf(err, "turn %d", turn)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Ply:          turn,
			Side:         side.Sign(),
			Source:       string(finish.Source),
			SearchMetric: finish.Metric,
		})

		if finish.Move == nil {
			log.Info().Msgf("%s resigns at turn %d", side, turn)
			outcome = game.Outcome{Over: true, Winner: side.Opponent()}
			break
		}
		log.Debug().Int("turn", turn).Str("move", finish.Move.String()).Str("source", string(finish.Source)).Msgf("%s moved", side)

		e.Position = e.Position.Play(*finish.Move)
		gameMetric.TotalMoves = turn
		outcome = e.Position.Outcome()
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	if outcome.Over {
		gameMetric.Winner = outcome.Winner.Sign()
		log.Info().Msgf("game over after %d moves, %s wins", gameMetric.TotalMoves, outcome.Winner)
	} else {
		log.Info().Msgf("stopped after %d moves without a winner", gameMetric.TotalMoves)
	}
	return outcome, gameMetric, moveMetrics, nil
}
