package communication

import (
	"encoding/json"
	"math"
	"time"

	"dobutsu/engine"
	"dobutsu/game"
	"dobutsu/meta"

	"github.com/pkg/errors"
)

// Communicator abstracts where searches run: an in-process controller or a
// remote one behind the websocket endpoint.
type Communicator interface {
	Start(req engine.StartRequest) error
	Cancel()
	Messages() <-chan engine.Message
	ActiveSession() engine.SessionID
}

// Message types on the wire.
const (
	TypeStart    = "start"
	TypeCancel   = "cancel"
	TypeProgress = "progress"
	TypeFinish   = "finish"
	TypeError    = "error"
	TypePing     = "ping"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type StartPayload struct {
	Board             []int   `json:"board"`
	Hands             []int   `json:"hands"`
	SideToMove        int     `json:"sideToMove"`
	TimeBudgetSeconds float64 `json:"timeBudgetSeconds"`
	SessionID         int64   `json:"sessionId"`
}

type ProgressPayload struct {
	SessionID            int64 `json:"sessionId"`
	SimulationsCompleted int   `json:"simulationsCompleted"`
}

// MovePayload carries both the structured move and its notation.
type MovePayload struct {
	Drop     bool   `json:"drop"`
	Kind     int    `json:"kind,omitempty"`
	Src      int    `json:"src"`
	Dst      int    `json:"dst"`
	Promote  bool   `json:"promote,omitempty"`
	Notation string `json:"notation"`
}

type FinishPayload struct {
	SessionID            int64        `json:"sessionId"`
	Move                 *MovePayload `json:"move"`
	SimulationsCompleted int          `json:"simulationsCompleted"`
	WinRate              float64      `json:"winRate"`
	SideToMoveAtRoot     int          `json:"sideToMoveAtRoot"`
	Source               string       `json:"source,omitempty"`
	Error                string       `json:"error,omitempty"`
}

type ErrorPayload struct {
	SessionID int64  `json:"sessionId"`
	Message   string `json:"message"`
}

func NewStartPayload(req engine.StartRequest) StartPayload {
	return StartPayload{
		Board:             req.Board,
		Hands:             req.Hands,
		SideToMove:        req.SideToMove,
		TimeBudgetSeconds: req.TimeBudget.Seconds(),
		SessionID:         int64(req.SessionID),
	}
}

// Request converts the payload; the position itself is validated by the
// controller.
func (p StartPayload) Request() (engine.StartRequest, error) {
	seconds := p.TimeBudgetSeconds
	if math.IsNaN(seconds) || seconds <= 0 || seconds > meta.MAX_TIME_BUDGET.Seconds() {
		return engine.StartRequest{}, errors.Wrapf(engine.ErrBudget, "got %v seconds, want (0, %v]", seconds, meta.MAX_TIME_BUDGET.Seconds())
	}
	return engine.StartRequest{
		Board:      p.Board,
		Hands:      p.Hands,
		SideToMove: p.SideToMove,
		TimeBudget: time.Duration(seconds * float64(time.Second)),
		SessionID:  engine.SessionID(p.SessionID),
	}, nil
}

func NewMovePayload(m game.Move) *MovePayload {
	return &MovePayload{
		Drop:     m.Drop,
		Kind:     int(m.Kind),
		Src:      int(m.Src),
		Dst:      int(m.Dst),
		Promote:  m.Promote,
		Notation: m.String(),
	}
}

func (p MovePayload) Move() (game.Move, error) {
	dst := game.Square(p.Dst)
	if !dst.Valid() {
		return game.Move{}, errors.Errorf("invalid destination %d", p.Dst)
	}
	if p.Drop {
		kind := game.Kind(p.Kind)
		if !kind.Droppable() {
			return game.Move{}, errors.Errorf("invalid drop kind %d", p.Kind)
		}
		return game.DropMove(kind, dst), nil
	}
	src := game.Square(p.Src)
	if !src.Valid() {
		return game.Move{}, errors.Errorf("invalid source %d", p.Src)
	}
	return game.BoardMove(src, dst, p.Promote), nil
}

// Encode wraps a payload in an envelope.
func Encode(kind string, payload any) ([]byte, error) {
	env := Envelope{Type: kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s payload", kind)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// EncodeMessage serializes a controller message.
func EncodeMessage(msg engine.Message) ([]byte, error) {
	switch msg := msg.(type) {
	case engine.Progress:
		return Encode(TypeProgress, ProgressPayload{
			SessionID:            int64(msg.SessionID),
			SimulationsCompleted: msg.Simulations,
		})
	case engine.Finish:
		payload := FinishPayload{
			SessionID:            int64(msg.SessionID),
			SimulationsCompleted: msg.Simulations,
			WinRate:              msg.WinRate,
			SideToMoveAtRoot:     msg.SideToMove.Sign(),
			Source:               string(msg.Source),
		}
		if msg.Move != nil {
			payload.Move = NewMovePayload(*msg.Move)
		}
		if msg.Err != nil {
			payload.Error = msg.Err.Error()
		}
		return Encode(TypeFinish, payload)
	}
	return nil, errors.Errorf("unknown message %T", msg)
}

// DecodeMessage turns a progress or finish envelope back into a controller
// message.
func DecodeMessage(env Envelope) (engine.Message, error) {
	switch env.Type {
	case TypeProgress:
		var p ProgressPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, errors.Wrap(err, "decoding progress")
		}
		return engine.Progress{SessionID: engine.SessionID(p.SessionID), Simulations: p.SimulationsCompleted}, nil
	case TypeFinish:
		var p FinishPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, errors.Wrap(err, "decoding finish")
		}
		side, ok := game.SideFromSign(p.SideToMoveAtRoot)
		if !ok {
			return nil, errors.Wrapf(game.ErrSide, "finish for session %d", p.SessionID)
		}
		finish := engine.Finish{
			SessionID:   engine.SessionID(p.SessionID),
			Simulations: p.SimulationsCompleted,
			WinRate:     p.WinRate,
			SideToMove:  side,
			Source:      engine.Source(p.Source),
		}
		if p.Move != nil {
			move, err := p.Move.Move()
			if err != nil {
				return nil, err
			}
			finish.Move = &move
		}
		if p.Error != "" {
			finish.Err = errors.New(p.Error)
		}
		return finish, nil
	}
	return nil, errors.Errorf("unexpected message type %q", env.Type)
}
