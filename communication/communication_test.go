package communication

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"dobutsu/engine"
	"dobutsu/game"
	"dobutsu/meta"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestStartPayload(t *testing.T) {
	t.Run("carries the request across the wire", func(t *testing.T) {
		req := engine.NewStartRequest(7, game.NewPosition(), 1500*time.Millisecond)

		data, err := Encode(TypeStart, NewStartPayload(req))
		require.NoError(t, err)
		env := decode(t, data)
		require.Equal(t, TypeStart, env.Type)

		var payload StartPayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		require.Equal(t, 1.5, payload.TimeBudgetSeconds)

		back, err := payload.Request()
		require.NoError(t, err)
		require.Equal(t, req, back)
	})

	t.Run("uses the documented field names", func(t *testing.T) {
		var payload StartPayload
		raw := `{"board":[0,0,0,0,0,0,0,0,0,0,0,0],"hands":[0,0,0,0,0,0,0,0,0,0,0,0],"sideToMove":-1,"timeBudgetSeconds":0.25,"sessionId":3}`
		require.NoError(t, json.Unmarshal([]byte(raw), &payload))

		req, err := payload.Request()
		require.NoError(t, err)
		require.Equal(t, engine.SessionID(3), req.SessionID)
		require.Equal(t, -1, req.SideToMove)
		require.Equal(t, 250*time.Millisecond, req.TimeBudget)
	})

	t.Run("rejects budgets outside the allowed range", func(t *testing.T) {
		for _, seconds := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -2, 1e300, meta.MAX_TIME_BUDGET.Seconds() + 1} {
			_, err := StartPayload{TimeBudgetSeconds: seconds}.Request()
			require.ErrorIs(t, err, engine.ErrBudget, "budget %v", seconds)
		}

		req, err := StartPayload{TimeBudgetSeconds: meta.MAX_TIME_BUDGET.Seconds()}.Request()
		require.NoError(t, err)
		require.Equal(t, meta.MAX_TIME_BUDGET, req.TimeBudget)
	})
}

func TestMessages(t *testing.T) {
	t.Run("finish keeps move and sentinel", func(t *testing.T) {
		move := game.DropMove(game.Giraffe, 4)
		finish := engine.Finish{
			SessionID:   2,
			Move:        &move,
			Simulations: engine.SimulationsMate,
			WinRate:     1,
			SideToMove:  game.Second,
			Source:      engine.SourceMate,
		}

		data, err := EncodeMessage(finish)
		require.NoError(t, err)
		require.Contains(t, string(data), `"notation":"G*B2"`)
		require.Contains(t, string(data), `"sideToMoveAtRoot":-1`)

		back, err := DecodeMessage(decode(t, data))
		require.NoError(t, err)
		require.Equal(t, finish, back)
	})

	t.Run("resignation is a null move", func(t *testing.T) {
		data, err := EncodeMessage(engine.Finish{SessionID: 1, SideToMove: game.First})
		require.NoError(t, err)
		require.Contains(t, string(data), `"move":null`)

		back, err := DecodeMessage(decode(t, data))
		require.NoError(t, err)
		require.Nil(t, back.(engine.Finish).Move)
	})

	t.Run("errors travel as text", func(t *testing.T) {
		data, err := EncodeMessage(engine.Finish{SessionID: 1, Err: errors.New("boom")})
		require.NoError(t, err)

		back, err := DecodeMessage(decode(t, data))
		require.NoError(t, err)
		require.EqualError(t, back.(engine.Finish).Err, "boom")
	})

	t.Run("progress", func(t *testing.T) {
		data, err := EncodeMessage(engine.Progress{SessionID: 4, Simulations: 5000})
		require.NoError(t, err)
		require.JSONEq(t, `{"type":"progress","payload":{"sessionId":4,"simulationsCompleted":5000}}`, string(data))
	})

	t.Run("rejects unknown types and bad moves", func(t *testing.T) {
		_, err := DecodeMessage(Envelope{Type: "bogus"})
		require.Error(t, err)

		_, err = MovePayload{Src: 3, Dst: 12}.Move()
		require.Error(t, err)
		_, err = MovePayload{Drop: true, Kind: int(game.Lion), Dst: 4}.Move()
		require.Error(t, err)
	})
}
