package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"timewarp.dev/internal/protocol"
)

// Sink receives every GAME_INFO the server accepts, in tick order per run.
type Sink interface {
	Accept(runID string, msg protocol.GameInfoMsg) error
}

// Server is the receiving end of a submitter: it checks each GAME_INFO,
// hands it to the sink and answers with an ACK.
type Server struct {
	sink   Sink
	schema *jsonschema.Schema
	log    *slog.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	runs map[string]*runState
}

type runState struct {
	last   uint64
	hashes map[uint64]string
}

// NewServer builds a server. schema, when set, validates every GAME_INFO
// before it is decoded.
func NewServer(sink Sink, schema *jsonschema.Schema, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sink:   sink,
		schema: schema,
		log:    logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		runs: map[string]*runState{},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		runID := hello.RunID
		if runID == "" {
			runID = hello.ClientName
		}
		log := s.log.With("run", runID)
		log.Info("submitter connected", "client", hello.ClientName)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug("read failed", "err", err)
				}
				return
			}
			ack := s.handle(runID, msg)
			acksTotal.WithLabelValues(ackLabel(ack)).Inc()
			if !ack.Accepted {
				log.Warn("game info rejected", "tick", ack.Tick, "code", ack.Code, "message", ack.Message)
			}
			if err := writeJSON(conn, ack); err != nil {
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.HelloMsg{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return protocol.HelloMsg{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "submitter"
	}
	return hello, true
}

func (s *Server) handle(runID string, raw []byte) protocol.AckMsg {
	reject := func(tick uint64, code, format string, args ...any) protocol.AckMsg {
		return protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			Tick:            tick,
			Code:            code,
			Message:         fmt.Sprintf(format, args...),
		}
	}

	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return reject(0, protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.Type != protocol.TypeGameInfo {
		return reject(0, protocol.ErrProtoBadRequest, "unexpected message type %q", base.Type)
	}
	if s.schema != nil {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return reject(0, protocol.ErrProtoBadRequest, "invalid json")
		}
		if err := s.schema.Validate(v); err != nil {
			return reject(0, protocol.ErrProtoBadRequest, "schema: %v", err)
		}
	}
	var info protocol.GameInfoMsg
	if err := json.Unmarshal(raw, &info); err != nil {
		return reject(0, protocol.ErrProtoBadRequest, "bad GAME_INFO")
	}
	if info.ProtocolVersion != protocol.Version {
		return reject(info.Tick, protocol.ErrProtoBadRequest, "bad protocol_version %q", info.ProtocolVersion)
	}

	if info.Cheating {
		return reject(info.Tick, protocol.ErrCheating, "movement check failed at tick %d", info.Tick)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[runID]
	if run == nil {
		run = &runState{hashes: map[uint64]string{}}
		s.runs[runID] = run
	}
	if info.Tick <= run.last {
		// A resubmitted batch repeats ticks that were already accepted.
		if h, ok := run.hashes[info.Tick]; ok {
			if h != info.StateHash {
				return reject(info.Tick, protocol.ErrHashDrift, "tick %d was accepted with another state", info.Tick)
			}
			return protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, Tick: info.Tick, Accepted: true}
		}
		return reject(info.Tick, protocol.ErrOutOfOrder, "tick %d after %d", info.Tick, run.last)
	}
	if s.sink != nil {
		if err := s.sink.Accept(runID, info); err != nil {
			return reject(info.Tick, protocol.ErrInternal, "%v", err)
		}
	}
	run.last = info.Tick
	run.hashes[info.Tick] = info.StateHash
	return protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, Tick: info.Tick, Accepted: true}
}

func ackLabel(a protocol.AckMsg) string {
	if a.Accepted {
		return "accepted"
	}
	return a.Code
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
