// Package book holds the opening book: a fixed set of opening lines replayed
// from the starting position into an exact-match table from position key to
// the next move of the line.
package book

import (
	"dobutsu/game"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Line is a sequence of board moves given as (source, destination) squares.
type Line [][2]game.Square

// Lines is the built-in repertoire.
var Lines = []Line{
	{{11, 8}, {0, 3}, {7, 4}, {3, 4}, {9, 5}, {2, 6}},
	{{7, 4}, {0, 4}},
	{{9, 6}, {2, 5}, {11, 8}, {0, 3}},
	{{11, 8}, {0, 3}, {10, 11}, {1, 0}},
	{{9, 6}, {0, 3}, {6, 4}, {3, 4}},
	{{11, 8}, {4, 7}, {8, 7}},
	{{9, 6}, {2, 5}, {7, 4}, {5, 4}},
	{{11, 8}, {2, 5}, {7, 4}, {5, 4}},
	{{10, 6}, {0, 3}},
	{{10, 8}, {2, 5}},
	{{11, 8}, {0, 3}, {10, 11}, {3, 6}},
	{{9, 6}, {2, 5}, {6, 3}, {5, 8}},
	{{9, 6}, {0, 3}, {6, 9}, {3, 0}},
}

// Book maps Position.Key values to a recommended move. It is read-only after
// construction and safe for concurrent lookups.
type Book struct {
	entries map[string]game.Move
}

// New builds the book from the built-in lines.
func New() *Book {
	return Build(Lines)
}

// Build replays each line from the starting position and records, for every
// prefix position, the next move of the line. The first line to reach a
// position wins. A line stops at its first move that is not legal.
func Build(lines []Line) *Book {
	b := &Book{entries: make(map[string]game.Move)}
	for i, line := range lines {
		state := game.NewPosition()
		for ply, step := range line {
			move, ok := lo.Find(state.LegalMoves(), func(m game.Move) bool {
				return !m.Drop && m.Src == step[0] && m.Dst == step[1]
			})
			if !ok {
				log.Warn().Int("line", i).Int("ply", ply).Msgf("book move %s-%s is not legal, truncating line", step[0], step[1])
				break
			}
			key := state.Key()
			if _, exists := b.entries[key]; !exists {
				b.entries[key] = move
			}
			state = state.Play(move)
		}
	}
	log.Debug().Int("positions", len(b.entries)).Msg("opening book built")
	return b
}

// Lookup returns the book move for the exact position, if any. Hands are not
// part of the key.
func (b *Book) Lookup(p game.Position) (game.Move, bool) {
	if b == nil {
		return game.Move{}, false
	}
	move, ok := b.entries[p.Key()]
	return move, ok
}

// Len returns the number of positions in the book.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
