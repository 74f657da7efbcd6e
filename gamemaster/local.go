package gamemaster

import (
	"fmt"
	"sync"
	"time"

	"dobutsu/communication"
	"dobutsu/engine"
	"dobutsu/game"
	"dobutsu/meta"
	"dobutsu/utils"
)

// Update is sent for every position change.
type Update struct {
	Move     *game.Move // nil after an undo or reset
	Position game.Position
	Outcome  game.Outcome
}

type requestKind int

const (
	noRequest requestKind = iota
	moveRequest
	analyzeRequest
)

// Game keeps the move history of one game and asks a controller for engine
// moves and analyses. Any change to the position cancels the outstanding
// request, so a late answer for an older position is never applied.
type Game struct {
	mu         sync.Mutex
	history    []game.Position // history[0] is the starting position
	moves      []game.Move
	controller communication.Communicator
	session    engine.SessionID
	pending    engine.SessionID
	kind       requestKind
	updateCh   chan Update
}

func NewGame(controller communication.Communicator) *Game {
	return &Game{
		history:    []game.Position{game.NewPosition()},
		controller: controller,
		session:    engine.NoSession,
		pending:    engine.NoSession,
		updateCh:   make(chan Update, 16),
	}
}

// Updates delivers position changes. Updates are dropped when nobody reads.
func (g *Game) Updates() <-chan Update {
	return g.updateCh
}

func (g *Game) Position() game.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current()
}

func (g *Game) current() game.Position {
	return g.history[len(g.history)-1]
}

func (g *Game) Outcome() game.Outcome {
	return g.Position().Outcome()
}

// Moves returns a copy of the moves played so far.
func (g *Game) Moves() []game.Move {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]game.Move(nil), g.moves...)
}

// Play applies a legal move to the current position.
func (g *Game) Play(move game.Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.play(move)
}

func (g *Game) play(move game.Move) error {
	pos := g.current()
	if pos.Outcome().Over {
		return fmt.Errorf("game is over - no moves allowed")
	}
	if utils.FindIndex(pos.LegalMoves(), move) < 0 {
		return fmt.Errorf("illegal move %s", move)
	}

	g.cancelRequest()
	next := pos.Play(move)
	g.history = append(g.history, next)
	g.moves = append(g.moves, move)
	g.publish(Update{Move: &move, Position: next, Outcome: next.Outcome()})
	return nil
}

// Undo takes back two plies when possible, so the same side is to move
// again, and one ply otherwise.
func (g *Game) Undo() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	plies := min(2, len(g.moves))
	if plies == 0 {
		return fmt.Errorf("nothing to undo")
	}
	g.cancelRequest()
	g.history = g.history[:len(g.history)-plies]
	g.moves = g.moves[:len(g.moves)-plies]
	pos := g.current()
	g.publish(Update{Position: pos, Outcome: pos.Outcome()})
	return nil
}

// Reset returns to the starting position.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelRequest()
	g.history = g.history[:1]
	g.moves = g.moves[:0]
	g.publish(Update{Position: g.current()})
}

// RequestMove asks the controller for a move in the current position.
func (g *Game) RequestMove(budget time.Duration) (engine.SessionID, error) {
	return g.request(moveRequest, budget)
}

// Analyze runs a fixed-length search on the current position. The finish
// message reports the evaluation; it is not played.
func (g *Game) Analyze() (engine.SessionID, error) {
	return g.request(analyzeRequest, meta.ANALYZE_DURATION)
}

func (g *Game) request(kind requestKind, budget time.Duration) (engine.SessionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos := g.current()
	if pos.Outcome().Over {
		return engine.NoSession, fmt.Errorf("game is over")
	}
	id := g.session + 1
	if err := g.controller.Start(engine.NewStartRequest(id, pos, budget)); err != nil {
		return engine.NoSession, err
	}
	g.session = id
	g.pending = id
	g.kind = kind
	return id, nil
}

// Apply handles a finish message from the controller. An engine move for the
// outstanding move request is played; analyses and stale answers are not.
// It reports whether a move was played.
func (g *Game) Apply(finish engine.Finish) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if finish.SessionID != g.pending {
		return false, nil
	}
	kind := g.kind
	g.pending, g.kind = engine.NoSession, noRequest
	if finish.Err != nil {
		return false, finish.Err
	}
	if kind != moveRequest || finish.Move == nil {
		return false, nil
	}
	return true, g.play(*finish.Move)
}

// cancelRequest abandons the outstanding request. Callers hold mu.
func (g *Game) cancelRequest() {
	if g.pending == engine.NoSession {
		return
	}
	g.controller.Cancel()
	g.pending, g.kind = engine.NoSession, noRequest
}

func (g *Game) publish(u Update) {
	select {
	case g.updateCh <- u:
	default:
	}
}
