package searcher

import (
	"testing"

	"dobutsu/game"

	"github.com/stretchr/testify/require"
)

// position builds a fixture from square -> signed piece code.
func position(t *testing.T, pieces map[int]int, sign int) game.Position {
	t.Helper()
	board := make([]int, game.NumSquares)
	for s, code := range pieces {
		board[s] = code
	}
	p, err := game.FromArrays(board, make([]int, 12), sign)
	require.NoError(t, err)
	return p
}

func TestSolveMate(t *testing.T) {
	t.Run("finds a one-move lion capture", func(t *testing.T) {
		p := position(t, map[int]int{1: -4, 4: 4}, 1)

		for depth := 1; depth <= 3; depth++ {
			move, ok := SolveMate(p, depth)
			require.True(t, ok, "depth %d", depth)
			require.Equal(t, game.BoardMove(4, 1, false), move, "depth %d", depth)
		}
	})

	t.Run("finds the capture for the second side", func(t *testing.T) {
		p := position(t, map[int]int{10: 4, 7: -4}, -1)

		move, ok := SolveMate(p, 2)
		require.True(t, ok)
		require.Equal(t, game.BoardMove(7, 10, false), move)
	})

	t.Run("does not search at depth zero", func(t *testing.T) {
		p := position(t, map[int]int{1: -4, 4: 4}, 1)

		_, ok := SolveMate(p, 0)
		require.False(t, ok)
	})

	t.Run("finds no forced win from the starting position", func(t *testing.T) {
		_, ok := SolveMate(game.NewPosition(), 3)
		require.False(t, ok)
	})

	t.Run("prefers the try that cannot be recaptured", func(t *testing.T) {
		// From 5 the lion reaches 1 and 2; the second lion on 0 guards only 1.
		p := position(t, map[int]int{0: -4, 5: 4}, 1)

		move, ok := SolveMate(p, 1)
		require.True(t, ok)
		require.Equal(t, game.BoardMove(5, 2, false), move)
	})

	t.Run("returns nothing for a finished game", func(t *testing.T) {
		p := position(t, map[int]int{1: -4}, 1)

		_, ok := SolveMate(p, 3)
		require.False(t, ok)
	})

	t.Run("reuses the solver across calls", func(t *testing.T) {
		solver := NewMateSolver(2)
		p := position(t, map[int]int{1: -4, 4: 4}, 1)

		first, ok1 := solver.Solve(p)
		second, ok2 := solver.Solve(p)
		require.True(t, ok1)
		require.True(t, ok2)
		require.Equal(t, first, second)
	})
}
