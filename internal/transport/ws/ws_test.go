package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp.dev/internal/protocol"
)

type memSink struct {
	mu   sync.Mutex
	got  []protocol.GameInfoMsg
	fail uint64
}

func (s *memSink) Accept(runID string, msg protocol.GameInfoMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Tick == s.fail {
		return errors.New("disk full")
	}
	s.got = append(s.got, msg)
	return nil
}

func (s *memSink) ticks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, m := range s.got {
		out = append(out, m.Tick)
	}
	return out
}

func info(tick uint64, hash byte) protocol.GameInfoMsg {
	return protocol.GameInfoMsg{
		Type:            protocol.TypeGameInfo,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Map:             "intro",
		Keys:            []string{"D"},
		Player:          protocol.PlayerInfo{X: float64(tick), Health: 100},
		StateHash:       strings.Repeat(string(hash), 64),
	}
}

func startServer(t *testing.T, sink Sink) string {
	t.Helper()
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "game_info.schema.json"))
	require.NoError(t, err)
	ts := httptest.NewServer(NewServer(sink, schema, nil).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url, run string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), ClientConfig{URL: url, RunID: run, Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_SubmitBatch(t *testing.T) {
	sink := &memSink{}
	c := dial(t, startServer(t, sink), "run-1")

	require.NoError(t, c.Submit(context.Background(), []protocol.GameInfoMsg{info(1, 'a'), info(2, 'b'), info(3, 'c')}))
	require.NoError(t, c.Send(info(4, 'd')))
	assert.Equal(t, []uint64{1, 2, 3, 4}, sink.ticks())
}

func TestClient_ResubmitAfterPartialFailure(t *testing.T) {
	sink := &memSink{fail: 3}
	c := dial(t, startServer(t, sink), "run-1")
	batch := []protocol.GameInfoMsg{info(1, 'a'), info(2, 'b'), info(3, 'c')}

	err := c.Submit(context.Background(), batch)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, uint64(3), rej.Tick)
	assert.Equal(t, protocol.ErrInternal, rej.Code)
	assert.Equal(t, []uint64{1, 2}, sink.ticks())

	sink.mu.Lock()
	sink.fail = 0
	sink.mu.Unlock()
	require.NoError(t, c.Submit(context.Background(), batch))
	assert.Equal(t, []uint64{1, 2, 3}, sink.ticks())
}

func TestServer_RejectsOutOfOrderAndDrift(t *testing.T) {
	sink := &memSink{}
	url := startServer(t, sink)
	c := dial(t, url, "run-1")
	require.NoError(t, c.Submit(context.Background(), []protocol.GameInfoMsg{info(2, 'a'), info(5, 'b')}))

	var rej *RejectedError
	require.ErrorAs(t, c.Send(info(5, 'c')), &rej)
	assert.Equal(t, protocol.ErrHashDrift, rej.Code)

	require.ErrorAs(t, c.Send(info(4, 'c')), &rej)
	assert.Equal(t, protocol.ErrOutOfOrder, rej.Code)

	// Progress is kept per run across connections.
	other := dial(t, url, "run-1")
	require.ErrorAs(t, other.Send(info(3, 'c')), &rej)
	assert.Equal(t, protocol.ErrOutOfOrder, rej.Code)
	fresh := dial(t, url, "run-2")
	require.NoError(t, fresh.Send(info(1, 'a')))
}

func TestServer_RejectsInvalidGameInfo(t *testing.T) {
	c := dial(t, startServer(t, &memSink{}), "run-1")
	bad := info(1, 'a')
	bad.StateHash = "nope"

	var rej *RejectedError
	require.ErrorAs(t, c.Send(bad), &rej)
	assert.Equal(t, protocol.ErrProtoBadRequest, rej.Code)
	assert.Contains(t, rej.Message, "schema")
}

func TestServer_ClosesWithoutHello(t *testing.T) {
	url := startServer(t, &memSink{})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(info(1, 'a')))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
}

func TestClient_CancelledContext(t *testing.T) {
	c := dial(t, startServer(t, &memSink{}), "run-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Submit(ctx, []protocol.GameInfoMsg{info(1, 'a')}), context.Canceled)
}

func TestServer_RejectsCheatingRun(t *testing.T) {
	sink := &memSink{}
	c := dial(t, startServer(t, sink), "run-1")
	msg := info(1, 'a')
	msg.Cheating = true

	var rej *RejectedError
	require.ErrorAs(t, c.Send(msg), &rej)
	assert.Equal(t, protocol.ErrCheating, rej.Code)
	assert.Empty(t, sink.ticks())
}

func TestWriteJSON_AfterCloseSent(t *testing.T) {
	url := startServer(t, &memSink{})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.ErrorIs(t, writeJSON(conn, info(1, 'a')), websocket.ErrCloseSent)
	assert.Error(t, writeJSON(conn, func() {}), "unencodable values fail before writing")
}
