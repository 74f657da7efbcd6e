package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mustPosition(t *testing.T, board [12]int, hands [12]int, sign int) Position {
	t.Helper()
	p, err := FromArrays(board[:], hands[:], sign)
	require.NoError(t, err)
	return p
}

// mirror rotates the board 180 degrees and swaps the roles of the sides.
func mirror(t *testing.T, p Position) Position {
	t.Helper()
	board, hands := p.Board(), p.Hands()
	var mb, mh [12]int
	for i, code := range board {
		mb[NumSquares-1-i] = -code
	}
	for i := 0; i < 6; i++ {
		mh[i], mh[i+6] = hands[i+6], hands[i]
	}
	return mustPosition(t, mb, mh, -p.Turn().Sign())
}

func mirrorMove(m Move) Move {
	if m.Drop {
		return DropMove(m.Kind, m.Dst.Reflect())
	}
	return BoardMove(m.Src.Reflect(), m.Dst.Reflect(), m.Promote)
}

func randomGame(seed uint64, plies int) []Position {
	rng := rand.New(rand.NewSource(seed))
	p := NewPosition()
	positions := []Position{p}
	for i := 0; i < plies && !p.Outcome().Over; i++ {
		moves := p.LegalMoves()
		if len(moves) == 0 {
			break
		}
		p = p.Play(moves[rng.Intn(len(moves))])
		positions = append(positions, p)
	}
	return positions
}

func TestInitialPosition(t *testing.T) {
	t.Run("key matches the interchange board", func(t *testing.T) {
		p := NewPosition()
		require.Equal(t, "-2,-4,-3,0,-1,0,0,1,0,3,4,2|1", p.Key())
		require.Equal(t, First, p.Turn())
		require.False(t, p.Outcome().Over)
	})

	t.Run("first mover has exactly four moves", func(t *testing.T) {
		moves := NewPosition().LegalMoves()

		expected := []Move{
			BoardMove(7, 4, false),  // chick B3-B2 takes the chick
			BoardMove(11, 8, false), // giraffe C4-C3
			BoardMove(10, 6, false), // lion B4-A3
			BoardMove(10, 8, false), // lion B4-C3
		}
		require.Equal(t, expected, moves)
	})

	t.Run("second mover's reply set mirrors the first mover's", func(t *testing.T) {
		p := NewPosition()
		m := mirror(t, p)
		require.Equal(t, Second, m.Turn())
		require.Equal(t, p.Board(), m.Board(), "starting position should be point symmetric")

		got := m.LegalMoves()
		want := make([]Move, 0, len(got))
		for _, mv := range p.LegalMoves() {
			want = append(want, mirrorMove(mv))
		}
		require.ElementsMatch(t, want, got)
	})
}

func TestSteps(t *testing.T) {
	t.Run("second's tables are first's reflected", func(t *testing.T) {
		for _, kind := range Kinds {
			for s := Square(0); s < NumSquares; s++ {
				require.Equal(t, Steps(First, kind, s.Reflect()).Reflect(), Steps(Second, kind, s), "%s on %s", kind, s)
			}
		}
	})

	t.Run("chick steps toward the opponent", func(t *testing.T) {
		require.Equal(t, bit(4), Steps(First, Chick, 7))
		require.Equal(t, bit(7), Steps(Second, Chick, 4))
		require.Equal(t, Bitboard(0), Steps(First, Chick, 1))
	})

	t.Run("hen cannot step diagonally backwards", func(t *testing.T) {
		// B2 for First: everything around except A3 and C3.
		require.Equal(t, bit(0)|bit(1)|bit(2)|bit(3)|bit(5)|bit(7), Steps(First, Hen, 4))
	})
}

func TestPlay(t *testing.T) {
	t.Run("capturing puts the piece in hand and leaves the parent untouched", func(t *testing.T) {
		p := NewPosition()
		next := p.Play(BoardMove(7, 4, false))

		require.Equal(t, NewPosition(), p)
		require.Equal(t, 1, next.InHand(First, Chick))
		require.Equal(t, bit(4), next.Pieces(First, Chick))
		require.Equal(t, Bitboard(0), next.Pieces(Second, Chick))
		require.Equal(t, Second, next.Turn())
		require.Equal(t, 1, next.MoveCount())
		require.Equal(t, next, p.Play(BoardMove(7, 4, false)), "Play should be a pure function")
	})

	t.Run("chick reaching the far row promotes", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, -4, 0,
			1, 0, 0,
			0, 0, 0,
			0, 4, 0,
		}, [12]int{}, 1)

		moves := p.LegalMoves()
		require.Contains(t, moves, BoardMove(3, 0, true))
		require.NotContains(t, moves, BoardMove(3, 0, false))

		next := p.Play(BoardMove(3, 0, true))
		require.Equal(t, bit(0), next.Pieces(First, Hen))
		require.Equal(t, Bitboard(0), next.Pieces(First, Chick))
	})

	t.Run("captured hen reverts to a chick in hand", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, -4, 0,
			5, -2, 0,
			0, 0, 0,
			0, 4, 0,
		}, [12]int{}, -1)

		next := p.Play(BoardMove(4, 3, false))
		require.Equal(t, 1, next.InHand(Second, Chick))
		require.Equal(t, 0, next.InHand(Second, Hen))
		require.Equal(t, Bitboard(0), next.Pieces(First, Hen))
		require.NoError(t, next.Validate())
	})

	t.Run("dropping consumes the hand piece", func(t *testing.T) {
		p := NewPosition().Play(BoardMove(7, 4, false)).Play(BoardMove(1, 3, false))
		next := p.Play(DropMove(Chick, 7))

		require.Equal(t, 0, next.InHand(First, Chick))
		require.True(t, next.Pieces(First, Chick).Has(7))
	})

	t.Run("moving from an empty square panics", func(t *testing.T) {
		require.Panics(t, func() {
			NewPosition().Play(BoardMove(5, 2, false))
		})
	})
}

func TestDrops(t *testing.T) {
	t.Run("chick cannot be dropped on the far row", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, -4, 0,
			0, 0, 0,
			0, 0, 0,
			0, 4, 0,
		}, [12]int{0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, 1)

		for _, m := range p.LegalMoves() {
			if m.Drop {
				require.False(t, row1.Has(m.Dst), "first dropped a chick on %s", m.Dst)
			}
		}
		require.Contains(t, p.LegalMoves(), DropMove(Chick, 3))

		second := mirror(t, p)
		for _, m := range second.LegalMoves() {
			if m.Drop {
				require.False(t, row4.Has(m.Dst), "second dropped a chick on %s", m.Dst)
			}
		}
	})

	t.Run("other kinds may be dropped anywhere empty", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, -4, 0,
			0, 0, 0,
			0, 0, 0,
			0, 4, 0,
		}, [12]int{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 1)

		drops := 0
		for _, m := range p.LegalMoves() {
			if m.Drop {
				require.Equal(t, Giraffe, m.Kind)
				drops++
			}
		}
		require.Equal(t, 10, drops)
	})
}

func TestInvariantsAlongRandomGames(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		for _, p := range randomGame(seed, 200) {
			require.NoError(t, p.Validate())
			require.True(t, p.Conserved(), "pieces created or destroyed:\n%s", p)

			occupied := p.Occupied(First) | p.Occupied(Second)
			bitsSet := 0
			for _, side := range []Side{First, Second} {
				for _, kind := range Kinds {
					bitsSet += p.Pieces(side, kind).Count()
				}
			}
			require.Equal(t, NumSquares-p.Empty().Count(), bitsSet)
			require.Equal(t, occupied.Count(), bitsSet)

			if !p.Outcome().Over {
				m := mirror(t, p)
				got := m.LegalMoves()
				want := make([]Move, 0, len(got))
				for _, mv := range p.LegalMoves() {
					want = append(want, mirrorMove(mv))
				}
				require.ElementsMatch(t, want, got)
				require.Equal(t, p.Outcome(), m.Outcome())
			}
		}
	}
}

func TestOutcome(t *testing.T) {
	t.Run("missing lion loses", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, 0, 0,
			0, -1, 0,
			0, 0, 0,
			0, 4, 0,
		}, [12]int{}, -1)
		require.Equal(t, Outcome{Over: true, Winner: First}, p.Outcome())
	})

	t.Run("uncapturable lion in the far row wins by try", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, 4, 0,
			0, 0, 0,
			-4, 0, 0,
			0, 0, 0,
		}, [12]int{}, -1)
		require.Equal(t, Outcome{Over: true, Winner: First}, p.Outcome())
	})

	t.Run("capturable lion in the far row is not yet a win", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			-2, 4, 0,
			0, 0, 0,
			-4, 0, 0,
			0, 0, 0,
		}, [12]int{}, -1)
		require.False(t, p.Outcome().Over)
	})

	t.Run("lion surviving the reply wins", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			-2, 4, 0,
			0, 0, 0,
			-4, 0, 0,
			0, 0, 0,
		}, [12]int{}, 1)
		require.Equal(t, Outcome{Over: true, Winner: First}, p.Outcome())
	})

	t.Run("second's try mirrors first's", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, 0, 0,
			0, 0, 4,
			0, 0, 0,
			0, -4, 0,
		}, [12]int{}, 1)
		require.Equal(t, Outcome{Over: true, Winner: Second}, p.Outcome())
	})

	t.Run("try via a lion move is recognised", func(t *testing.T) {
		p := mustPosition(t, [12]int{
			0, 0, 0,
			0, 4, 0,
			0, 0, -4,
			0, 0, 0,
		}, [12]int{}, 1)
		require.False(t, p.Outcome().Over)
		require.True(t, p.IsTry(BoardMove(4, 1, false)))
		require.False(t, p.IsTry(BoardMove(4, 7, false)))
		require.Equal(t, Outcome{Over: true, Winner: First}, p.Play(BoardMove(4, 1, false)).Outcome())
	})
}

func TestFromArrays(t *testing.T) {
	t.Run("round trips the interchange form", func(t *testing.T) {
		p := NewPosition().Play(BoardMove(7, 4, false)).Play(BoardMove(1, 4, false))
		board, hands := p.Board(), p.Hands()
		got, err := FromArrays(board[:], hands[:], p.Turn().Sign())
		require.NoError(t, err)
		require.Equal(t, p.Key(), got.Key())
		require.Equal(t, p.Hands(), got.Hands())
		require.Equal(t, p.Hash(), got.Hash())
	})

	t.Run("rejects wrong lengths and side together", func(t *testing.T) {
		_, err := FromArrays(make([]int, 11), make([]int, 13), 0)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrBoardLength))
		require.True(t, errors.Is(err, ErrHandsLength))
		require.True(t, errors.Is(err, ErrSide))
	})

	t.Run("rejects unknown piece codes", func(t *testing.T) {
		board := NewPosition().Board()
		board[5] = 7
		_, err := FromArrays(board[:], make([]int, 12), 1)
		require.True(t, errors.Is(err, ErrPieceCode))
	})

	t.Run("rejects impossible counts", func(t *testing.T) {
		board := NewPosition().Board()
		hands := make([]int, 12)
		hands[Chick] = 1
		_, err := FromArrays(board[:], hands, 1)
		require.True(t, errors.Is(err, ErrPieceCount), "three chicks")

		board[5] = 4
		_, err = FromArrays(board[:], make([]int, 12), 1)
		require.True(t, errors.Is(err, ErrPieceCount), "two first lions")

		hands = make([]int, 12)
		hands[6+int(Hen)] = 1
		_, err = FromArrays(make([]int, 12), hands, 1)
		require.True(t, errors.Is(err, ErrPieceCount), "hen in hand")
	})
}

func TestNotation(t *testing.T) {
	p := NewPosition()

	t.Run("renders moves", func(t *testing.T) {
		require.Equal(t, "B3-B2", BoardMove(7, 4, false).String())
		require.Equal(t, "A2-A1+", BoardMove(3, 0, true).String())
		require.Equal(t, "C*B2", DropMove(Chick, 4).String())
	})

	t.Run("parses legal moves", func(t *testing.T) {
		m, err := ParseMove(p, "C4-C3")
		require.NoError(t, err)
		require.Equal(t, BoardMove(11, 8, false), m)

		_, err = ParseMove(p, "A4-A3")
		require.Error(t, err)

		next := p.Play(BoardMove(7, 4, false)).Play(BoardMove(1, 4, false))
		m, err = ParseMove(next, "c*b3")
		require.NoError(t, err)
		require.Equal(t, DropMove(Chick, 7), m)
	})
}

func TestMaterial(t *testing.T) {
	t.Run("starting position is balanced", func(t *testing.T) {
		require.Zero(t, NewPosition().Material())
	})

	t.Run("score is relative to the side to move", func(t *testing.T) {
		var board, hands [12]int
		board[1], board[10], board[7] = -4, 4, 1
		require.Equal(t, 1.0, mustPosition(t, board, hands, 1).Material())
		require.Equal(t, -1.0, mustPosition(t, board, hands, -1).Material())
	})
}

func TestHash(t *testing.T) {
	t.Run("side to move changes the hash", func(t *testing.T) {
		board := NewPosition().Board()
		first := mustPosition(t, board, [12]int{}, 1)
		second := mustPosition(t, board, [12]int{}, -1)
		require.Equal(t, NewPosition().Hash(), first.Hash())
		require.NotEqual(t, first.Hash(), second.Hash())
	})

	t.Run("hands change the hash", func(t *testing.T) {
		var board, hands [12]int
		board[1], board[10] = -4, 4
		empty := mustPosition(t, board, hands, 1)
		hands[1] = 1
		oneChick := mustPosition(t, board, hands, 1)
		hands[1] = 2
		twoChicks := mustPosition(t, board, hands, 1)
		require.NotEqual(t, empty.Hash(), oneChick.Hash())
		require.NotEqual(t, oneChick.Hash(), twoChicks.Hash())
	})

	t.Run("positions along a game hash apart", func(t *testing.T) {
		seen := map[StateHash]string{}
		for _, p := range randomGame(3, 40) {
			if key, ok := seen[p.Hash()]; ok {
				require.Equal(t, key, p.Key()+p.String())
			}
			seen[p.Hash()] = p.Key() + p.String()
		}
	})

	t.Run("does not allocate", func(t *testing.T) {
		p := NewPosition().Play(BoardMove(7, 4, false))
		allocs := testing.AllocsPerRun(100, func() { _ = p.Hash() })
		require.Zero(t, allocs)
	})
}
