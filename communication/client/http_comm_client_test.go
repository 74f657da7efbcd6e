package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dobutsu/communication"
	"dobutsu/engine"
	"dobutsu/game"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// floodServer answers the first start with progress messages then a finish,
// all for session 1, and waits for the client to hang up.
func floodServer(t *testing.T, progress int) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for i := 1; i <= progress; i++ {
			data, _ := communication.EncodeMessage(engine.Progress{SessionID: 1, Simulations: 100 * i})
			if conn.WriteMessage(websocket.TextMessage, data) != nil {
				return
			}
		}
		data, _ := communication.EncodeMessage(engine.Finish{SessionID: 1, SideToMove: game.Second, Source: engine.SourceSearch})
		if conn.WriteMessage(websocket.TextMessage, data) != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientCommunicator(t *testing.T) {
	t.Run("finish is kept when the buffer is full", func(t *testing.T) {
		cc, err := NewClientCommunicator(context.Background(), floodServer(t, 200))
		require.NoError(t, err)
		t.Cleanup(func() { cc.Close() })

		require.NoError(t, cc.Start(engine.NewStartRequest(1, game.NewPosition(), time.Second)))
		require.Eventually(t, func() bool { return len(cc.Messages()) == cap(cc.Messages()) }, 5*time.Second, time.Millisecond)

		timeout := time.After(5 * time.Second)
		for {
			select {
			case msg := <-cc.Messages():
				if finish, ok := msg.(engine.Finish); ok {
					require.Equal(t, engine.SessionID(1), finish.SessionID)
					return
				}
			case <-timeout:
				require.FailNow(t, "finish was dropped")
			}
		}
	})

	t.Run("close does not wait for a reader", func(t *testing.T) {
		cc, err := NewClientCommunicator(context.Background(), floodServer(t, 200))
		require.NoError(t, err)

		require.NoError(t, cc.Start(engine.NewStartRequest(1, game.NewPosition(), time.Second)))
		require.Eventually(t, func() bool { return len(cc.Messages()) == cap(cc.Messages()) }, 5*time.Second, time.Millisecond)

		closed := make(chan struct{})
		go func() {
			cc.Close()
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			require.FailNow(t, "close blocked")
		}
	})
}
