package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dobutsu/book"
	"dobutsu/communication"
	"dobutsu/communication/client"
	"dobutsu/communication/server"
	"dobutsu/engine"
	"dobutsu/experiments"
	"dobutsu/game"
	"dobutsu/gamemaster"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	mode := flag.String("mode", "play", "play, serve, selfplay or experiment")
	level := flag.String("log-level", "info", "zerolog level")
	addr := flag.String("addr", ":8080", "listen address for serve")
	remote := flag.String("remote", "", "search server url, e.g. ws://localhost:8080/ws; empty searches in process")
	budget := flag.Duration("budget", 2*time.Second, "thinking time per engine move")
	side := flag.Int("side", 1, "side the human plays: 1 for First, -1 for Second")
	experiment := flag.String("experiment", "baseline", "baseline, cutoff, mate, book, exploration or throughput")
	out := flag.String("out", "experiments", "output directory for experiment results")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if lvl, err := zerolog.ParseLevel(*level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "play":
		err = play(ctx, *remote, *side, *budget)
	case "serve":
		err = server.NewServer(engine.WithBook(book.New())).ListenAndServe(ctx, *addr)
	case "selfplay":
		err = selfPlay(ctx, *budget)
	case "experiment":
		err = runExperiment(ctx, *experiment, *out)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg(*mode)
	}
}

func play(ctx context.Context, remote string, sign int, budget time.Duration) error {
	human, ok := game.SideFromSign(sign)
	if !ok {
		return fmt.Errorf("side must be 1 or -1, got %d", sign)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var controller communication.Communicator
	if remote != "" {
		cc, err := client.NewClientCommunicator(ctx, remote)
		if err != nil {
			return err
		}
		defer cc.Close()
		controller = cc
	} else {
		c := engine.NewController(engine.WithBook(book.New()))
		g.Go(func() error { return c.Run(gctx) })
		controller = c
	}

	gm := gamemaster.NewGameMaster(controller, human, budget, os.Stdin, os.Stdout)
	err := gm.RunGame(gctx)
	cancel()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	return err
}

func selfPlay(ctx context.Context, budget time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	first := engine.NewController(engine.WithBook(book.New()))
	second := engine.NewController(engine.WithBook(book.New()))
	g.Go(func() error { return first.Run(gctx) })
	g.Go(func() error { return second.Run(gctx) })

	e := engine.LocalEngine(engine.Player{Agent: first, Budget: budget}, engine.Player{Agent: second, Budget: budget})
	outcome, gameMetric, _, err := e.Run(gctx)
	cancel()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	if err != nil {
		return err
	}

	fmt.Println(e.Position)
	if outcome.Over {
		fmt.Printf("%s wins after %d moves\n", outcome.Winner, gameMetric.TotalMoves)
	} else {
		fmt.Printf("draw after %d moves\n", gameMetric.TotalMoves)
	}
	return nil
}

func runExperiment(ctx context.Context, name, root string) error {
	run := map[string]func(context.Context, string) (experiments.Result, error){
		"baseline":    experiments.RunBaselineExperiment,
		"cutoff":      experiments.RunCutoffExperiment,
		"mate":        experiments.RunMateDepthExperiment,
		"book":        experiments.RunBookExperiment,
		"exploration": experiments.RunExplorationExperiment,
		"throughput":  experiments.RunThroughputExperiment,
	}[name]
	if run == nil {
		return fmt.Errorf("unknown experiment %q", name)
	}
	result, err := run(ctx, root)
	if err != nil {
		return err
	}
	for _, s := range result.Summaries {
		fmt.Println(s)
	}
	return nil
}
