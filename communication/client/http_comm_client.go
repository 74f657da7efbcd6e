package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dobutsu/communication"
	"dobutsu/engine"
	"dobutsu/game"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ClientCommunicator talks to a search server over a websocket. It satisfies
// communication.Communicator and engine.Agent.
type ClientCommunicator struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	mu        sync.Mutex
	latest    engine.SessionID
	issued    engine.SessionID
	messages  chan engine.Message
	errs      chan error
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewClientCommunicator dials the server's /ws endpoint, e.g.
// "ws://localhost:8080/ws".
func NewClientCommunicator(ctx context.Context, url string) (*ClientCommunicator, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	cc := &ClientCommunicator{
		conn:     conn,
		latest:   engine.NoSession,
		issued:   engine.NoSession,
		messages: make(chan engine.Message, 64),
		errs:     make(chan error, 16),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go cc.read()
	return cc, nil
}

func (cc *ClientCommunicator) read() {
	defer close(cc.done)
	defer close(cc.messages)
	for {
		_, data, err := cc.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("connection closed")
			return
		}
		var env communication.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("malformed message from server")
			continue
		}
		switch env.Type {
		case communication.TypePing:
			continue
		case communication.TypeError:
			var payload communication.ErrorPayload
			if err := json.Unmarshal(env.Payload, &payload); err == nil {
				cc.report(errors.Errorf("session %d: %s", payload.SessionID, payload.Message))
			}
			continue
		}
		msg, err := communication.DecodeMessage(env)
		if err != nil {
			log.Warn().Err(err).Msg("undecodable message from server")
			continue
		}
		if msg.Session() != cc.ActiveSession() {
			continue
		}
		if !cc.deliver(msg) {
			return
		}
	}
}

// deliver hands msg to the reader of Messages. Progress is dropped when the
// buffer is full; a finish waits for room until the communicator is closed.
func (cc *ClientCommunicator) deliver(msg engine.Message) bool {
	if _, isFinish := msg.(engine.Finish); !isFinish {
		select {
		case cc.messages <- msg:
		default:
			log.Warn().Int64("session", int64(msg.Session())).Msg("message buffer full, dropping progress")
		}
		return true
	}
	select {
	case cc.messages <- msg:
		return true
	case <-cc.closing:
		return false
	}
}

func (cc *ClientCommunicator) report(err error) {
	select {
	case cc.errs <- err:
	default:
	}
}

// Errors delivers rejections reported by the server.
func (cc *ClientCommunicator) Errors() <-chan error {
	return cc.errs
}

func (cc *ClientCommunicator) send(kind string, payload any) error {
	data, err := communication.Encode(kind, payload)
	if err != nil {
		return err
	}
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	return errors.Wrapf(cc.conn.WriteMessage(websocket.TextMessage, data), "sending %s", kind)
}

func (cc *ClientCommunicator) Start(req engine.StartRequest) error {
	cc.mu.Lock()
	if req.SessionID <= cc.issued {
		issued := cc.issued
		cc.mu.Unlock()
		return errors.Wrapf(engine.ErrStaleSession, "got %d after %d", req.SessionID, issued)
	}
	cc.issued = req.SessionID
	cc.latest = req.SessionID
	cc.mu.Unlock()
	return cc.send(communication.TypeStart, communication.NewStartPayload(req))
}

func (cc *ClientCommunicator) Cancel() {
	cc.mu.Lock()
	cc.latest = engine.NoSession
	cc.mu.Unlock()
	if err := cc.send(communication.TypeCancel, nil); err != nil {
		log.Warn().Err(err).Msg("cancel not sent")
	}
}

func (cc *ClientCommunicator) Messages() <-chan engine.Message {
	return cc.messages
}

func (cc *ClientCommunicator) ActiveSession() engine.SessionID {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.latest
}

// FindMove runs one remote session to completion.
func (cc *ClientCommunicator) FindMove(ctx context.Context, pos game.Position, budget time.Duration) (engine.Finish, error) {
	cc.mu.Lock()
	id := cc.issued + 1
	cc.mu.Unlock()

	if err := cc.Start(engine.NewStartRequest(id, pos, budget)); err != nil {
		return engine.Finish{}, err
	}
	for {
		select {
		case msg, ok := <-cc.messages:
			if !ok {
				return engine.Finish{}, engine.ErrStopped
			}
			if finish, isFinish := msg.(engine.Finish); isFinish && finish.SessionID == id {
				return finish, finish.Err
			}
		case err := <-cc.errs:
			return engine.Finish{}, err
		case <-ctx.Done():
			cc.Cancel()
			return engine.Finish{}, ctx.Err()
		}
	}
}

// Close closes the connection and waits for the reader to stop.
func (cc *ClientCommunicator) Close() error {
	cc.closeOnce.Do(func() { close(cc.closing) })
	cc.writeMu.Lock()
	_ = cc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	cc.writeMu.Unlock()
	err := cc.conn.Close()
	<-cc.done
	return err
}
