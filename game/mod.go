package game

import "fmt"

// Side identifies one of the two players. First moves first and starts on
// rows 3 and 4 (squares 6..11); Second starts on rows 1 and 2.
type Side int8

const (
	First Side = iota
	Second
)

func (s Side) Opponent() Side {
	return s ^ 1
}

// Sign returns +1 for First and -1 for Second, the convention used by the
// signed board codes at the boundary.
func (s Side) Sign() int {
	if s == First {
		return 1
	}
	return -1
}

func (s Side) String() string {
	switch s {
	case First:
		return "first"
	case Second:
		return "second"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// SideFromSign maps +1/-1 to a Side.
func SideFromSign(sign int) (Side, bool) {
	switch sign {
	case 1:
		return First, true
	case -1:
		return Second, true
	}
	return First, false
}

// Kind is a piece kind. The numeric values double as the absolute board codes.
type Kind int8

const (
	NoKind Kind = iota
	Chick
	Giraffe
	Elephant
	Lion
	Hen
)

const numKinds = 6 // including the unused NoKind slot

// Kinds lists every real piece kind in code order.
var Kinds = [...]Kind{Chick, Giraffe, Elephant, Lion, Hen}

var kindLetters = [numKinds]byte{'.', 'C', 'G', 'E', 'L', 'H'}

func (k Kind) String() string {
	switch k {
	case Chick:
		return "chick"
	case Giraffe:
		return "giraffe"
	case Elephant:
		return "elephant"
	case Lion:
		return "lion"
	case Hen:
		return "hen"
	}
	return "none"
}

// Letter returns the single-letter notation of the kind.
func (k Kind) Letter() byte {
	if k < 0 || k >= numKinds {
		return '?'
	}
	return kindLetters[k]
}

func (k Kind) valid() bool {
	return k >= Chick && k <= Hen
}

// Demoted returns the kind a piece takes when it enters a hand.
func (k Kind) Demoted() Kind {
	if k == Hen {
		return Chick
	}
	return k
}

// Droppable reports whether a piece of this kind can ever be held and dropped.
func (k Kind) Droppable() bool {
	return k == Chick || k == Giraffe || k == Elephant
}

// Initial number of pieces of each kind across both sides, Hen counted as Chick.
var initialTotals = [numKinds]int{Chick: 2, Giraffe: 2, Elephant: 2, Lion: 2}
