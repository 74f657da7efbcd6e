package game

import (
	"fmt"
	"strings"
)

// Move is either a board move (Src to Dst, optionally promoting) or, when
// Drop is set, the placement of a hand piece of Kind on Dst. Moves are
// comparable values.
type Move struct {
	Drop    bool
	Kind    Kind // dropped kind; NoKind for board moves
	Src     Square
	Dst     Square
	Promote bool
}

func BoardMove(src, dst Square, promote bool) Move {
	return Move{Src: src, Dst: dst, Promote: promote}
}

func DropMove(kind Kind, dst Square) Move {
	return Move{Drop: true, Kind: kind, Src: NoSquare, Dst: dst}
}

// String renders the move as "B3-B2", "B2-B1+" or "C*B2".
func (m Move) String() string {
	if m.Drop {
		return fmt.Sprintf("%c*%s", m.Kind.Letter(), m.Dst)
	}
	s := m.Src.String() + "-" + m.Dst.String()
	if m.Promote {
		s += "+"
	}
	return s
}

// ParseMove resolves notation against the legal moves of the position. A
// promoting Chick move may be written with or without the trailing "+".
func ParseMove(p Position, text string) (Move, error) {
	text = strings.TrimSpace(text)
	legal := p.LegalMoves()

	if i := strings.IndexByte(text, '*'); i >= 0 {
		if i != 1 {
			return Move{}, fmt.Errorf("invalid drop %q", text)
		}
		kind := kindFromLetter(text[0])
		dst, err := ParseSquare(text[i+1:])
		if err != nil {
			return Move{}, err
		}
		want := DropMove(kind, dst)
		for _, m := range legal {
			if m == want {
				return m, nil
			}
		}
		return Move{}, fmt.Errorf("illegal move %q", text)
	}

	text = strings.TrimSuffix(text, "+")
	from, to, ok := strings.Cut(text, "-")
	if !ok {
		return Move{}, fmt.Errorf("invalid move %q", text)
	}
	src, err := ParseSquare(from)
	if err != nil {
		return Move{}, err
	}
	dst, err := ParseSquare(to)
	if err != nil {
		return Move{}, err
	}
	for _, m := range legal {
		if !m.Drop && m.Src == src && m.Dst == dst {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("illegal move %q", text)
}

func kindFromLetter(letter byte) Kind {
	for _, kind := range Kinds {
		if kindLetters[kind] == letter || kindLetters[kind]+('a'-'A') == letter {
			return kind
		}
	}
	return NoKind
}
