package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dobutsu/communication"
	"dobutsu/engine"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const pingInterval = 30 * time.Second

// Server binds one search controller to every websocket connection on /ws.
type Server struct {
	options []engine.ControllerOption
	upgrade websocket.Upgrader
}

// NewServer initializes a server whose controllers are built with options.
func NewServer(options ...engine.ControllerOption) *Server {
	return &Server{
		options: options,
		upgrade: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	return g.Wait()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	controller := engine.NewController(s.options...)
	send := make(chan []byte, 16)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return controller.Run(ctx) })
	g.Go(func() error { return forward(ctx, controller.Messages(), send) })
	g.Go(func() error { return writeWithHeartbeat(ctx, conn, send) })

	log.Debug().Str("remote", r.RemoteAddr).Msg("client connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("client disconnected")
			break
		}
		handle(controller, data, send)
	}
	cancel()
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("connection closed")
	}
}

func handle(controller *engine.Controller, data []byte, send chan<- []byte) {
	var env communication.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		reply(send, 0, err)
		return
	}
	switch env.Type {
	case communication.TypeStart:
		var payload communication.StartPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			reply(send, 0, err)
			return
		}
		req, err := payload.Request()
		if err == nil {
			err = controller.Start(req)
		}
		if err != nil {
			reply(send, payload.SessionID, err)
		}
	case communication.TypeCancel:
		controller.Cancel()
	case communication.TypePing:
	default:
		log.Debug().Str("type", env.Type).Msg("ignoring message")
	}
}

func reply(send chan<- []byte, session int64, err error) {
	data, encErr := communication.Encode(communication.TypeError, communication.ErrorPayload{SessionID: session, Message: err.Error()})
	if encErr != nil {
		return
	}
	select {
	case send <- data:
	default:
	}
}

// forward encodes controller messages for the writer.
func forward(ctx context.Context, messages <-chan engine.Message, send chan<- []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			data, err := communication.EncodeMessage(msg)
			if err != nil {
				return err
			}
			select {
			case send <- data:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// writeWithHeartbeat is the only writer of conn. It pings after
// pingInterval without traffic.
func writeWithHeartbeat(ctx context.Context, conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping, err := communication.Encode(communication.TypePing, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < pingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
