package searcher

import "math"

// Rewards, from the perspective of the side that chose the move into a node.

const WIN = 1.0
const DRAW = 0.5
const LOSS = 0.0

type ucb1 struct {
	c   float64
	lnN float64
}

func newUCB1(c float64, N float64) *ucb1 {
	if N == 0 {
		panic("N cannot be 0")
	}
	return &ucb1{c: c, lnN: math.Log(N)}
}

// evaluate returns q/n + c*sqrt(ln(N)/n), or +Inf for an unvisited child.
func (u ucb1) evaluate(q float64, n float64) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return q/n + u.c*math.Sqrt(u.lnN/n)
}
