package engine

import (
	"fmt"
	"time"

	"dobutsu/experiments/metrics"
	"dobutsu/game"
)

// SessionID identifies one search request. Callers issue strictly increasing
// ids; NoSession means nothing is active.
type SessionID int64

const NoSession SessionID = -1

// Reserved simulation counts for answers that did not come from MCTS.
const (
	SimulationsBook = -1
	SimulationsMate = -2
)

// Source tells how a finish message was produced.
type Source string

const (
	SourceBook   Source = "book"
	SourceMate   Source = "mate"
	SourceSearch Source = "search"
)

// StartRequest asks for the best move in a position given in interchange
// form. Starting a session cancels the previous one.
type StartRequest struct {
	Board      []int
	Hands      []int
	SideToMove int // +1 First, -1 Second
	TimeBudget time.Duration
	SessionID  SessionID
}

// NewStartRequest describes pos in interchange form.
func NewStartRequest(id SessionID, pos game.Position, budget time.Duration) StartRequest {
	board, hands := pos.Board(), pos.Hands()
	return StartRequest{
		Board:      board[:],
		Hands:      hands[:],
		SideToMove: pos.Turn().Sign(),
		TimeBudget: budget,
		SessionID:  id,
	}
}

// Message is either a Progress or a Finish.
type Message interface {
	Session() SessionID
}

type Progress struct {
	SessionID   SessionID
	Simulations int
}

func (p Progress) Session() SessionID { return p.SessionID }

// Finish is always the last message of a session. Move is nil when the side
// to move has no move, or when Err is set.
type Finish struct {
	SessionID   SessionID
	Move        *game.Move
	Simulations int
	WinRate     float64 // for SideToMove, in [0, 1]
	SideToMove  game.Side
	Source      Source
	Metric      metrics.SearchMetric
	Err         error
}

func (f Finish) Session() SessionID { return f.SessionID }

// FirstWinRate converts the win rate to First's perspective.
func (f Finish) FirstWinRate() float64 {
	if f.SideToMove == game.First {
		return f.WinRate
	}
	return 1 - f.WinRate
}

func (f Finish) String() string {
	if f.Err != nil {
		return fmt.Sprintf("session %d failed: %v", f.SessionID, f.Err)
	}
	if f.Move == nil {
		return fmt.Sprintf("session %d: %s resigns", f.SessionID, f.SideToMove)
	}
	return fmt.Sprintf("session %d: %s plays %s (%s, %d simulations, win rate %.2f)",
		f.SessionID, f.SideToMove, f.Move, f.Source, f.Simulations, f.WinRate)
}

// State is the phase of the session being worked on.
type State int

const (
	Idle State = iota
	BookLookup
	MateSearch
	Iterating
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BookLookup:
		return "book lookup"
	case MateSearch:
		return "mate search"
	case Iterating:
		return "iterating"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
