package experiments

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"dobutsu/book"
	"dobutsu/engine"
	"dobutsu/experiments/metrics"
	"dobutsu/player"
	"dobutsu/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	NumGames   = 30 // Per match up
	TimeBudget = 10 * time.Millisecond
)

// Experiment is a set of match ups, each played NumGames times. Agent1 of a
// match up plays First in odd games and Second in even ones.
type Experiment struct {
	Name     string
	Configs  []metrics.AgentConfig
	MatchUps [][2]metrics.AgentConfig
	Games    int // per match up
	Parallel int // games played at once
	MaxTurns int // 0 keeps the engine default
	Root     string
}

type Result struct {
	Dir       string // empty when nothing was written
	Games     []metrics.GameRecord
	Moves     []metrics.MoveRecord
	Summaries []Summary
}

func RunCutoffExperiment(ctx context.Context, root string) (Result, error) {
	baseline := metrics.AgentConfig{ID: 0, Duration: TimeBudget, MateDepth: 3, Cutoff: 150}
	cutoffConfigs := []metrics.AgentConfig{
		{ID: 1, Duration: baseline.Duration, MateDepth: 3, Cutoff: 150}, // Baseline equivalent
		{ID: 2, Duration: baseline.Duration, MateDepth: 3, Cutoff: 10},
		{ID: 3, Duration: baseline.Duration, MateDepth: 3, Cutoff: 40},
		{ID: 4, Duration: baseline.Duration, MateDepth: 3, Cutoff: 300},
	}
	return Run(ctx, against(baseline, "cutoff", cutoffConfigs, root))
}

func RunMateDepthExperiment(ctx context.Context, root string) (Result, error) {
	baseline := metrics.AgentConfig{ID: 0, Duration: TimeBudget, Cutoff: 150} // Without mate search
	depthConfigs := []metrics.AgentConfig{
		{ID: 1, Duration: baseline.Duration, Cutoff: 150, MateDepth: 1},
		{ID: 2, Duration: baseline.Duration, Cutoff: 150, MateDepth: 3},
		{ID: 3, Duration: baseline.Duration, Cutoff: 150, MateDepth: 5},
	}
	return Run(ctx, against(baseline, "mate_depth", depthConfigs, root))
}

func RunBookExperiment(ctx context.Context, root string) (Result, error) {
	baseline := metrics.AgentConfig{ID: 0, Duration: TimeBudget, MateDepth: 3, Cutoff: 150, NoBook: true}
	configs := []metrics.AgentConfig{
		{ID: 1, Duration: baseline.Duration, MateDepth: 3, Cutoff: 150},
	}
	return Run(ctx, against(baseline, "book", configs, root))
}

func RunExplorationExperiment(ctx context.Context, root string) (Result, error) {
	baseline := metrics.AgentConfig{ID: 0, Duration: TimeBudget, MateDepth: 3, Cutoff: 150} // C = 1.41
	configs := []metrics.AgentConfig{
		{ID: 1, Duration: baseline.Duration, MateDepth: 3, Cutoff: 150, Exploration: 0.5},
		{ID: 2, Duration: baseline.Duration, MateDepth: 3, Cutoff: 150, Exploration: 2.5},
	}
	return Run(ctx, against(baseline, "exploration", configs, root))
}

// RunBaselineExperiment measures the searcher against random play.
func RunBaselineExperiment(ctx context.Context, root string) (Result, error) {
	baseline := metrics.AgentConfig{ID: 0, Random: true}
	configs := []metrics.AgentConfig{
		{ID: 1, Duration: TimeBudget, Cutoff: 150},
		{ID: 2, Duration: TimeBudget, MateDepth: 3, Cutoff: 150},
	}
	return Run(ctx, against(baseline, "random_baseline", configs, root))
}

// against pairs the baseline with every config.
func against(baseline metrics.AgentConfig, name string, configs []metrics.AgentConfig, root string) Experiment {
	return Experiment{
		Name:    name,
		Configs: append(configs, baseline),
		MatchUps: lo.Map(configs, func(config metrics.AgentConfig, _ int) [2]metrics.AgentConfig {
			return [2]metrics.AgentConfig{baseline, config}
		}),
		Games:    NumGames,
		Parallel: 4,
		Root:     root,
	}
}

// Run plays every game of the experiment and, when Root is set, stores the
// configs, records and a parquet copy under Root/Name/<timestamp>.
func Run(ctx context.Context, exp Experiment) (Result, error) {
	games := max(exp.Games, 1)
	total := len(exp.MatchUps) * games
	gameRecords := make([]metrics.GameRecord, total)
	moveRecords := make([][]metrics.MoveRecord, total)
	var completed atomic.Int64

	log.Info().Msgf("starting %s experiment with %d games...", exp.Name, total)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(exp.Parallel, 1))
	for mi, matchUp := range exp.MatchUps {
		mi := mi
		for i := 0; i < games; i++ {
			id := mi*games + i + 1
			first, second := matchUp[0], matchUp[1]
			if i%2 == 1 {
				first, second = second, first
			}
			g.Go(func() error {
				gameMetric, moveMetrics, err := runGame(ctx, first, second, uint64(id), exp.MaxTurns)
				if err != nil {
					return errors.Wrapf(err, "game %d", id)
				}
				gameRecords[id-1] = metrics.GameRecord{
					ID:         id,
					Agent1:     first.ID,
					Agent2:     second.ID,
					GameMetric: gameMetric,
				}
				moveRecords[id-1] = lo.Map(moveMetrics, func(mm metrics.MoveMetric, _ int) metrics.MoveRecord {
					return metrics.MoveRecord{Game: id, MoveMetric: mm}
				})
				log.Info().Msgf("completed game %d of %d (match up %d) with winner: %d", completed.Add(1), total, mi+1, gameMetric.Winner)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	log.Info().Msgf("completed %s experiment", exp.Name)

	result := Result{
		Games: gameRecords,
		Moves: lo.Flatten(moveRecords),
	}
	result.Summaries = Summarize(exp.MatchUps, result.Games, result.Moves)
	for _, s := range result.Summaries {
		log.Info().Msg(s.String())
	}
	if exp.Root == "" {
		return result, nil
	}

	dir, err := store(exp, result)
	if err != nil {
		return Result{}, err
	}
	result.Dir = dir
	return result, nil
}

func store(exp Experiment, result Result) (string, error) {
	writer, err := metrics.NewWriter(exp.Root, exp.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(exp.Configs); err != nil {
		return "", fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteGameRecords(result.Games); err != nil {
		return "", fmt.Errorf("failed to write game records: %w", err)
	}
	if err := writer.WriteMoveRecords(result.Moves); err != nil {
		return "", fmt.Errorf("failed to write move records: %w", err)
	}
	if err := writer.WriteParquet(result.Games, result.Moves, 2); err != nil {
		return "", fmt.Errorf("failed to write parquet: %w", err)
	}
	log.Info().Str("dir", writer.Dir()).Msg("stored experiment results")
	return writer.Dir(), nil
}

// runGame executes a single game between two agents. Controllers are run for
// the length of the game only.
func runGame(ctx context.Context, first, second metrics.AgentConfig, seed uint64, maxTurns int) (metrics.GameMetric, []metrics.MoveMetric, error) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	agents := lo.Map([]metrics.AgentConfig{first, second}, func(config metrics.AgentConfig, i int) engine.Agent {
		if config.Random {
			return player.NewPlayer(seed*2 + uint64(i))
		}
		c := createController(config, seed*2+uint64(i))
		g.Go(func() error { return c.Run(gctx) })
		return c
	})

	e := engine.LocalEngine(
		engine.Player{Agent: agents[0], Budget: first.Duration},
		engine.Player{Agent: agents[1], Budget: second.Duration},
	)
	if maxTurns > 0 {
		e.MaxTurns = maxTurns
	}
	_, gameMetric, moveMetrics, err := e.Run(gctx)

	cancel()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	return gameMetric, moveMetrics, err
}

func createController(config metrics.AgentConfig, seed uint64) *engine.Controller {
	options := []searcher.Option{searcher.WithSeed(seed), searcher.WithMetrics()}
	if config.Cutoff > 0 {
		options = append(options, searcher.WithCutoff(config.Cutoff))
	}
	if config.Exploration > 0 {
		options = append(options, searcher.WithExploration(config.Exploration))
	}

	controllerOptions := []engine.ControllerOption{
		engine.WithMateDepth(config.MateDepth),
		engine.WithSearchOptions(options...),
	}
	if !config.NoBook {
		controllerOptions = append(controllerOptions, engine.WithBook(book.New()))
	}
	return engine.NewController(controllerOptions...)
}
