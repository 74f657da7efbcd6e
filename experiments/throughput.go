package experiments

import (
	"context"
	"fmt"
	"time"

	"dobutsu/engine"
	"dobutsu/experiments/metrics"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the games of one match up from Agent1's point of view.
// When both sides share an ID, Wins counts every decisive game.
type Summary struct {
	Agent1, Agent2 int
	Games          int
	Wins, Losses   int
	Draws          int
	Score          float64 // (wins + draws/2) / games
	MeanLength     float64
	StdLength      float64
	SimsPerSecond  float64 // mean over searched moves
}

func (s Summary) String() string {
	return fmt.Sprintf("agent %d vs %d: %d games, +%d -%d =%d, score %.2f, length %.1f±%.1f, %.0f simulations/s",
		s.Agent1, s.Agent2, s.Games, s.Wins, s.Losses, s.Draws, s.Score, s.MeanLength, s.StdLength, s.SimsPerSecond)
}

// Summarize computes one Summary per match up.
func Summarize(matchUps [][2]metrics.AgentConfig, games []metrics.GameRecord, moves []metrics.MoveRecord) []Summary {
	movesByGame := lo.GroupBy(moves, func(m metrics.MoveRecord) int { return m.Game })

	return lo.Map(matchUps, func(matchUp [2]metrics.AgentConfig, _ int) Summary {
		a, b := matchUp[0].ID, matchUp[1].ID
		played := lo.Filter(games, func(g metrics.GameRecord, _ int) bool {
			return (g.Agent1 == a && g.Agent2 == b) || (g.Agent1 == b && g.Agent2 == a)
		})
		s := Summary{Agent1: a, Agent2: b, Games: len(played)}
		if len(played) == 0 {
			return s
		}

		for _, g := range played {
			switch winnerID(g) {
			case -1:
				s.Draws++
			case a:
				s.Wins++
			default:
				s.Losses++
			}
		}
		s.Score = (float64(s.Wins) + float64(s.Draws)/2) / float64(s.Games)

		lengths := lo.Map(played, func(g metrics.GameRecord, _ int) float64 { return float64(g.TotalMoves) })
		s.MeanLength, s.StdLength = stat.MeanStdDev(lengths, nil)

		var rates []float64
		for _, g := range played {
			for _, m := range movesByGame[g.ID] {
				if m.Source == string(engine.SourceSearch) && m.Duration > 0 {
					rates = append(rates, float64(m.Simulations)/m.Duration.Seconds())
				}
			}
		}
		if len(rates) > 0 {
			s.SimsPerSecond = stat.Mean(rates, nil)
		}
		return s
	})
}

// winnerID returns the config ID of the winner, or -1 for a draw.
func winnerID(g metrics.GameRecord) int {
	switch g.Winner {
	case 1:
		return g.Agent1
	case -1:
		return g.Agent2
	}
	return -1
}

// RunThroughputExperiment measures simulations per second at several time
// budgets. Both sides of a match up share one config.
func RunThroughputExperiment(ctx context.Context, root string) (Result, error) {
	budgets := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	configs := lo.Map(budgets, func(d time.Duration, i int) metrics.AgentConfig {
		return metrics.AgentConfig{ID: i + 1, Duration: d, Cutoff: 150, NoBook: true}
	})
	return Run(ctx, Experiment{
		Name:    "throughput",
		Configs: configs,
		MatchUps: lo.Map(configs, func(config metrics.AgentConfig, _ int) [2]metrics.AgentConfig {
			return [2]metrics.AgentConfig{config, config}
		}),
		Games:    2,
		Parallel: 1,
		MaxTurns: 40,
		Root:     root,
	})
}
