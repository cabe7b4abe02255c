package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/transport/ws"
)

// WSClient sends sync calls over one WebSocket connection. Calls are
// serialized: each waits for the reply frame to the previous one.
type WSClient struct {
	conn *websocket.Conn
	opts Options

	mu sync.Mutex
}

// DialWS connects to a ws:// or wss:// url ending in protocol.PathWS.
func DialWS(ctx context.Context, url string, opts Options) (*WSClient, error) {
	opts.fill()
	d := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: opts.Gzip,
	}
	conn, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &WSClient{conn: conn, opts: opts}, nil
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *WSClient) Sync(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	if req.Input.SyncID == "" {
		req.Input.SyncID = c.opts.NewSyncID()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return protocol.AgentSyncResponse{}, fmt.Errorf("encode request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(60 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	// Unblock the read if ctx is cancelled mid-call.
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return protocol.AgentSyncResponse{}, fmt.Errorf("write: %w", err)
	}
	_ = c.conn.SetReadDeadline(deadline)
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return protocol.AgentSyncResponse{}, ctx.Err()
		}
		return protocol.AgentSyncResponse{}, fmt.Errorf("read: %w", err)
	}
	var f ws.Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return protocol.AgentSyncResponse{}, fmt.Errorf("bad frame: %w", err)
	}
	if f.SyncID != "" && f.SyncID != req.Input.SyncID {
		return protocol.AgentSyncResponse{}, fmt.Errorf("reply for sync %s, want %s", f.SyncID, req.Input.SyncID)
	}
	return decodeReply(c.opts.Codec, req.Input.SyncID, f.Status, f.Body)
}
