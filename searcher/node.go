package searcher

import (
	"math"

	"dobutsu/game"

	"golang.org/x/exp/rand"
)

type nodeID int32

const nilNode nodeID = -1

// node is one position in the search tree. Rewards are credited to the side
// that played move, i.e. the side to move at the parent.
type node struct {
	pos      game.Position
	parent   nodeID
	move     game.Move
	children []nodeID
	untried  []game.Move
	rewards  float64
	visits   int
	terminal bool
}

// tree owns every node of one search. Nodes refer to each other by index so
// the whole tree is released with the slice.
type tree struct {
	nodes []node
}

func newTree(root game.Position) *tree {
	t := &tree{nodes: make([]node, 0, 1024)}
	t.add(nilNode, game.Move{}, root)
	return t
}

func (t *tree) add(parent nodeID, move game.Move, pos game.Position) nodeID {
	id := nodeID(len(t.nodes))
	n := node{pos: pos, parent: parent, move: move}
	if pos.Outcome().Over {
		n.terminal = true
	} else {
		n.untried = pos.LegalMoves()
		n.terminal = len(n.untried) == 0
	}
	t.nodes = append(t.nodes, n)
	if parent != nilNode {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	return id
}

func (t *tree) root() *node {
	return &t.nodes[0]
}

func (t *tree) size() int {
	return len(t.nodes)
}

// selectLeaf descends from the root through fully expanded nodes, picking
// the child with the highest UCB1 score at each step.
func (t *tree) selectLeaf(exploration float64) nodeID {
	id := nodeID(0)
	for {
		n := &t.nodes[id]
		if n.terminal || len(n.untried) > 0 || len(n.children) == 0 {
			return id
		}
		id = t.bestChild(id, exploration)
	}
}

func (t *tree) bestChild(id nodeID, exploration float64) nodeID {
	n := &t.nodes[id]
	policy := newUCB1(exploration, float64(n.visits))

	best := nilNode
	bestScore := math.Inf(-1)
	for _, child := range n.children {
		c := &t.nodes[child]
		score := policy.evaluate(c.rewards, float64(c.visits))
		if score == math.Inf(1) {
			return child
		}
		if score > bestScore {
			best, bestScore = child, score
		}
	}
	if best == nilNode {
		panic("fully expanded node has no children")
	}
	return best
}

// expand materializes one untried move, picked at random, as a new child.
func (t *tree) expand(id nodeID, rng *rand.Rand) nodeID {
	n := &t.nodes[id]
	if n.terminal || len(n.untried) == 0 {
		return id
	}
	i := rng.Intn(len(n.untried))
	move := n.untried[i]
	last := len(n.untried) - 1
	n.untried[i] = n.untried[last]
	n.untried = n.untried[:last]

	pos := n.pos.Play(move)
	return t.add(id, move, pos)
}

// backup credits the rollout outcome to every node from id to the root. A
// draw is worth half a win to both sides.
func (t *tree) backup(id nodeID, outcome game.Outcome) {
	for id != nilNode {
		n := &t.nodes[id]
		mover := n.pos.Turn().Opponent()
		switch {
		case !outcome.Over:
			n.rewards += DRAW
		case outcome.Winner == mover:
			n.rewards += WIN
		default:
			n.rewards += LOSS
		}
		n.visits++
		id = n.parent
	}
}

// robustChild returns the most visited root child, ties going to the one
// expanded first.
func (t *tree) robustChild() (nodeID, bool) {
	best := nilNode
	for _, child := range t.root().children {
		if best == nilNode || t.nodes[child].visits > t.nodes[best].visits {
			best = child
		}
	}
	return best, best != nilNode
}

func (n *node) winRate() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.rewards / float64(n.visits)
}
