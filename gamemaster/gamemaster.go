package gamemaster

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"dobutsu/communication"
	"dobutsu/engine"
	"dobutsu/game"

	"github.com/rs/zerolog/log"
)

// GameMaster plays a text game between a human on in/out and the engine.
type GameMaster struct {
	Game       *Game
	Controller communication.Communicator
	HumanSide  game.Side
	Budget     time.Duration

	in       *bufio.Scanner
	out      io.Writer
	resigned bool
}

// NewGameMaster initializes a new GameMaster. The controller must be running.
func NewGameMaster(controller communication.Communicator, human game.Side, budget time.Duration, in io.Reader, out io.Writer) *GameMaster {
	return &GameMaster{
		Game:       NewGame(controller),
		Controller: controller,
		HumanSide:  human,
		Budget:     budget,
		in:         bufio.NewScanner(in),
		out:        out,
	}
}

// RunGame is the game loop. It returns when the input ends, on "quit", or
// when ctx is done.
func (gm *GameMaster) RunGame(ctx context.Context) error {
	gm.show()
	for {
		pos := gm.Game.Position()
		if !pos.Outcome().Over && !gm.resigned && pos.Turn() != gm.HumanSide {
			if err := gm.engineTurn(ctx); err != nil {
				return err
			}
			gm.show()
			continue
		}

		fmt.Fprint(gm.out, "> ")
		if !gm.in.Scan() {
			return gm.in.Err()
		}
		line := strings.TrimSpace(gm.in.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "undo":
			if err := gm.Game.Undo(); err != nil {
				fmt.Fprintln(gm.out, err)
				continue
			}
			gm.resigned = false
		case "reset":
			gm.Game.Reset()
			gm.resigned = false
		case "analyze":
			if err := gm.analyze(ctx); err != nil {
				fmt.Fprintln(gm.out, err)
			}
			continue
		case "moves":
			for _, m := range pos.LegalMoves() {
				fmt.Fprintf(gm.out, "%s ", m)
			}
			fmt.Fprintln(gm.out)
			continue
		default:
			if gm.resigned {
				fmt.Fprintln(gm.out, "game is over - undo or reset")
				continue
			}
			move, err := game.ParseMove(pos, line)
			if err != nil {
				fmt.Fprintln(gm.out, err)
				continue
			}
			if err := gm.Game.Play(move); err != nil {
				fmt.Fprintln(gm.out, err)
				continue
			}
		}
		gm.show()
	}
}

func (gm *GameMaster) engineTurn(ctx context.Context) error {
	id, err := gm.Game.RequestMove(gm.Budget)
	if err != nil {
		return err
	}
	finish, err := gm.await(ctx, id)
	if err != nil {
		return err
	}
	played, err := gm.Game.Apply(finish)
	if err != nil {
		return err
	}
	if !played {
		fmt.Fprintf(gm.out, "%s resigns\n", finish.SideToMove)
		gm.resigned = true
		return nil
	}
	fmt.Fprintf(gm.out, "engine plays %s (%s)\n", finish.Move, describe(finish))
	return nil
}

func (gm *GameMaster) analyze(ctx context.Context) error {
	id, err := gm.Game.Analyze()
	if err != nil {
		return err
	}
	finish, err := gm.await(ctx, id)
	if err != nil {
		return err
	}
	if _, err := gm.Game.Apply(finish); err != nil {
		return err
	}
	if finish.Move == nil {
		fmt.Fprintln(gm.out, "no move")
		return nil
	}
	fmt.Fprintf(gm.out, "best %s, first wins %.0f%% (%s)\n", finish.Move, 100*finish.FirstWinRate(), describe(finish))
	return nil
}

// await reads controller messages until the finish of session id.
func (gm *GameMaster) await(ctx context.Context, id engine.SessionID) (engine.Finish, error) {
	for {
		select {
		case msg, ok := <-gm.Controller.Messages():
			if !ok {
				return engine.Finish{}, engine.ErrStopped
			}
			if msg.Session() != id {
				log.Debug().Int64("session", int64(msg.Session())).Msg("ignoring message from an old session")
				continue
			}
			switch msg := msg.(type) {
			case engine.Progress:
				fmt.Fprintf(gm.out, "... %d simulations\n", msg.Simulations)
			case engine.Finish:
				return msg, nil
			}
		case <-ctx.Done():
			gm.Controller.Cancel()
			return engine.Finish{}, ctx.Err()
		}
	}
}

func (gm *GameMaster) show() {
	pos := gm.Game.Position()
	fmt.Fprintln(gm.out, pos)
	if outcome := pos.Outcome(); outcome.Over {
		fmt.Fprintf(gm.out, "%s wins\n", outcome.Winner)
		return
	}
	fmt.Fprintf(gm.out, "%s to move, material %+.2f\n", pos.Turn(), pos.Material())
}

func describe(finish engine.Finish) string {
	switch finish.Simulations {
	case engine.SimulationsBook:
		return "book"
	case engine.SimulationsMate:
		return "forced win"
	}
	return fmt.Sprintf("%d simulations, win rate %.2f", finish.Simulations, finish.WinRate)
}
