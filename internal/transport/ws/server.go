package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"botfarm.ai/internal/agentsync"
)

// Syncer resolves one raw sync payload.
type Syncer interface {
	Sync(ctx context.Context, raw []byte) agentsync.Result
}

// Frame is the reply to one inbound sync frame. Body is exactly what the
// HTTP transport would have sent with Status.
type Frame struct {
	SyncID string          `json:"syncId,omitempty"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Server struct {
	syncer Syncer
	log    *log.Logger
	// maxFrame bounds a single inbound frame.
	maxFrame int64

	upgrader websocket.Upgrader
}

func NewServer(s Syncer, logger *log.Logger, maxFrame int64) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxFrame <= 0 {
		maxFrame = 4 << 20
	}
	return &Server{
		syncer:   s,
		log:      logger,
		maxFrame: maxFrame,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024,
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin:       func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.maxFrame)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Frames are resolved in arrival order; a simulation waits for each
		// reply before sending its next tick.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Printf("ws read: remote=%s err=%v", r.RemoteAddr, err)
				}
				return
			}
			if typ != websocket.TextMessage {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "expected text frame"), time.Now().Add(time.Second))
				return
			}

			res := s.syncer.Sync(ctx, msg)
			if err := writeJSON(conn, Frame{
				SyncID: res.Base.Input.SyncID,
				Status: res.Outcome.StatusCode(),
				Body:   res.Body,
			}); err != nil {
				s.log.Printf("ws write: remote=%s err=%v", r.RemoteAddr, err)
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
