// Package syncclient is the simulation side of a sync call. It encodes a
// request, sends it over HTTP or WebSocket and decodes the response with
// the same strict variant checks the server applies to requests.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/syncschema"
)

// RejectedError is a 422 reply: the server could not decode the request.
type RejectedError struct {
	SyncID string
	Errors []syncschema.FieldError
}

func (e *RejectedError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("sync %s rejected", e.SyncID)
	}
	first := e.Errors[0]
	return fmt.Sprintf("sync %s rejected: %v: %s (%d errors)", e.SyncID, first.Loc, first.Msg, len(e.Errors))
}

// StatusError is any other non-200 reply.
type StatusError struct {
	SyncID string
	Status int
	Detail string
	Code   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sync %s: status %d %s: %s", e.SyncID, e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("sync %s: status %d: %s", e.SyncID, e.Status, e.Detail)
}

type Options struct {
	HTTPClient *http.Client
	// Codec decodes responses; nil uses syncschema.Default().
	Codec *syncschema.Codec
	// Gzip compresses request bodies.
	Gzip bool
	// NewSyncID fills an empty Input.SyncID.
	NewSyncID func() string
}

func (o *Options) fill() {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if o.Codec == nil {
		o.Codec = syncschema.Default()
	}
	if o.NewSyncID == nil {
		o.NewSyncID = uuid.NewString
	}
}

// Client sends sync calls over HTTP.
type Client struct {
	url  string
	opts Options
}

// New returns a client for the agent server at baseURL (for example
// http://localhost:8080).
func New(baseURL string, opts Options) *Client {
	opts.fill()
	return &Client{
		url:  strings.TrimRight(baseURL, "/") + protocol.PathSync,
		opts: opts,
	}
}

func (c *Client) Sync(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	if req.Input.SyncID == "" {
		req.Input.SyncID = c.opts.NewSyncID()
	}
	syncID := req.Input.SyncID

	body, err := json.Marshal(req)
	if err != nil {
		return protocol.AgentSyncResponse{}, fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return protocol.AgentSyncResponse{}, err
	}
	if c.opts.Gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return protocol.AgentSyncResponse{}, err
		}
		if err := zw.Close(); err != nil {
			return protocol.AgentSyncResponse{}, err
		}
		body = buf.Bytes()
		hreq.Header.Set("Content-Encoding", "gzip")
	}
	hreq.Body = io.NopCloser(bytes.NewReader(body))
	hreq.ContentLength = int64(len(body))
	hreq.Header.Set("content-type", "application/json")
	// Set explicitly so the transport leaves the body encoded for us.
	hreq.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.opts.HTTPClient.Do(hreq)
	if err != nil {
		return protocol.AgentSyncResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	if err != nil {
		return protocol.AgentSyncResponse{}, fmt.Errorf("read response: %w", err)
	}
	return decodeReply(c.opts.Codec, syncID, resp.StatusCode, raw)
}

func readResponse(resp *http.Response) ([]byte, error) {
	var src io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}
	return io.ReadAll(src)
}

// decodeReply turns a status and body into a response or a typed error.
func decodeReply(codec *syncschema.Codec, syncID string, status int, raw []byte) (protocol.AgentSyncResponse, error) {
	switch status {
	case http.StatusOK:
		out, err := codec.DecodeResponse(raw)
		if err != nil {
			return protocol.AgentSyncResponse{}, fmt.Errorf("sync %s: decode response: %w", syncID, err)
		}
		return out, nil
	case http.StatusUnprocessableEntity:
		var body struct {
			ValidationError []syncschema.FieldError `json:"validation_error"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return protocol.AgentSyncResponse{}, &StatusError{SyncID: syncID, Status: status, Detail: string(raw)}
		}
		return protocol.AgentSyncResponse{}, &RejectedError{SyncID: syncID, Errors: body.ValidationError}
	}
	var body struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Detail == "" {
		body.Detail = strings.TrimSpace(string(raw))
	}
	return protocol.AgentSyncResponse{}, &StatusError{SyncID: syncID, Status: status, Detail: body.Detail, Code: body.Code}
}
