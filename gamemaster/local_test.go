package gamemaster

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"dobutsu/book"
	"dobutsu/engine"
	"dobutsu/game"
	"dobutsu/searcher"

	"github.com/stretchr/testify/require"
)

func runningController(t *testing.T, options ...engine.ControllerOption) *engine.Controller {
	t.Helper()
	c := engine.NewController(append([]engine.ControllerOption{
		engine.WithBook(book.New()),
		engine.WithSearchOptions(searcher.WithBatchSize(100)),
	}, options...)...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return c
}

func awaitFinish(t *testing.T, c *engine.Controller, id engine.SessionID) engine.Finish {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case msg := <-c.Messages():
			if finish, ok := msg.(engine.Finish); ok && finish.SessionID == id {
				return finish
			}
		case <-timeout:
			require.FailNow(t, "no finish message")
		}
	}
}

func TestGamePlay(t *testing.T) {
	t.Run("starts from the initial position", func(t *testing.T) {
		g := NewGame(engine.NewController())
		require.Equal(t, game.NewPosition(), g.Position())
		require.Empty(t, g.Moves())
		require.False(t, g.Outcome().Over)
	})

	t.Run("legal moves are applied and published", func(t *testing.T) {
		g := NewGame(engine.NewController())
		move := game.BoardMove(7, 4, false)

		require.NoError(t, g.Play(move))
		require.Equal(t, []game.Move{move}, g.Moves())
		require.Equal(t, game.Second, g.Position().Turn())

		update := <-g.Updates()
		require.Equal(t, move, *update.Move)
		require.Equal(t, g.Position(), update.Position)
	})

	t.Run("illegal moves are rejected", func(t *testing.T) {
		g := NewGame(engine.NewController())

		require.Error(t, g.Play(game.BoardMove(7, 1, false)))
		require.Error(t, g.Play(game.DropMove(game.Chick, 5)))
		require.Empty(t, g.Moves())
	})

	t.Run("no moves after the game is over", func(t *testing.T) {
		g := NewGame(engine.NewController())
		for _, m := range []game.Move{
			game.BoardMove(7, 4, false),
			game.BoardMove(0, 3, false),
			game.BoardMove(4, 1, true),
		} {
			require.NoError(t, g.Play(m))
		}
		require.Equal(t, game.Outcome{Over: true, Winner: game.First}, g.Outcome())
		require.Error(t, g.Play(game.BoardMove(3, 6, false)))
	})
}

func TestGameUndo(t *testing.T) {
	t.Run("takes back two plies", func(t *testing.T) {
		g := NewGame(engine.NewController())
		require.NoError(t, g.Play(game.BoardMove(7, 4, false)))
		require.NoError(t, g.Play(game.BoardMove(0, 3, false)))
		require.NoError(t, g.Play(game.BoardMove(10, 6, false)))

		require.NoError(t, g.Undo())
		require.Equal(t, []game.Move{game.BoardMove(7, 4, false)}, g.Moves())
		require.Equal(t, game.Second, g.Position().Turn())
	})

	t.Run("takes back a single ply at the start", func(t *testing.T) {
		g := NewGame(engine.NewController())
		require.NoError(t, g.Play(game.BoardMove(7, 4, false)))

		require.NoError(t, g.Undo())
		require.Equal(t, game.NewPosition(), g.Position())
	})

	t.Run("fails with nothing to undo", func(t *testing.T) {
		g := NewGame(engine.NewController())
		require.Error(t, g.Undo())
	})

	t.Run("reset returns to the start", func(t *testing.T) {
		g := NewGame(engine.NewController())
		require.NoError(t, g.Play(game.BoardMove(7, 4, false)))
		require.NoError(t, g.Play(game.BoardMove(0, 3, false)))

		g.Reset()
		require.Equal(t, game.NewPosition(), g.Position())
		require.Empty(t, g.Moves())
	})
}

func TestGameRequests(t *testing.T) {
	t.Run("engine move is applied", func(t *testing.T) {
		c := runningController(t)
		g := NewGame(c)

		id, err := g.RequestMove(time.Second)
		require.NoError(t, err)
		played, err := g.Apply(awaitFinish(t, c, id))
		require.NoError(t, err)
		require.True(t, played)
		require.Equal(t, []game.Move{game.BoardMove(11, 8, false)}, g.Moves())
	})

	t.Run("analysis is reported but not played", func(t *testing.T) {
		c := runningController(t)
		g := NewGame(c)

		id, err := g.Analyze()
		require.NoError(t, err)
		finish := awaitFinish(t, c, id)
		played, err := g.Apply(finish)
		require.NoError(t, err)
		require.False(t, played)
		require.Empty(t, g.Moves())
		require.Equal(t, 0.55, finish.FirstWinRate())
	})

	t.Run("undo cancels the outstanding request", func(t *testing.T) {
		// no book and no mate check, so every request reaches the search
		c := runningController(t, engine.WithBook(nil), engine.WithMateDepth(0))
		g := NewGame(c)
		require.NoError(t, g.Play(game.BoardMove(7, 4, false)))
		require.NoError(t, g.Play(game.BoardMove(0, 3, false)))

		id, err := g.RequestMove(100 * time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, id, c.ActiveSession())
		require.Eventually(t, func() bool { return c.State() == engine.Iterating }, 5*time.Second, time.Millisecond)

		require.NoError(t, g.Undo())
		require.Equal(t, engine.NoSession, c.ActiveSession())
		require.Never(t, func() bool {
			select {
			case msg := <-c.Messages():
				_, isFinish := msg.(engine.Finish)
				return isFinish
			default:
				return false
			}
		}, 400*time.Millisecond, 10*time.Millisecond)

		played, err := g.Apply(engine.Finish{SessionID: id, Move: &game.Move{}})
		require.NoError(t, err)
		require.False(t, played, "a stale answer should be ignored")
	})

	t.Run("session ids keep increasing", func(t *testing.T) {
		c := runningController(t)
		g := NewGame(c)

		first, err := g.Analyze()
		require.NoError(t, err)
		g.Reset()
		second, err := g.Analyze()
		require.NoError(t, err)
		require.Greater(t, second, first)
	})
}

func TestGameMaster(t *testing.T) {
	t.Run("plays against the book and takes it back", func(t *testing.T) {
		c := runningController(t)
		in := strings.NewReader("A1-A2\nundo\nquit\n")
		var out bytes.Buffer
		gm := NewGameMaster(c, game.Second, 50*time.Millisecond, in, &out)

		require.NoError(t, gm.RunGame(context.Background()))
		require.Contains(t, out.String(), "engine plays C4-C3 (book)")
		require.Contains(t, out.String(), "engine plays B3-B2 (book)")
		require.Equal(t, []game.Move{game.BoardMove(11, 8, false)}, gm.Game.Moves())
	})

	t.Run("rejects bad input and keeps going", func(t *testing.T) {
		c := runningController(t)
		in := strings.NewReader("Z9-A1\nB3-B1\n")
		var out bytes.Buffer
		gm := NewGameMaster(c, game.First, 50*time.Millisecond, in, &out)

		require.NoError(t, gm.RunGame(context.Background()))
		require.Contains(t, out.String(), "illegal move")
		require.Empty(t, gm.Game.Moves())
	})
}
