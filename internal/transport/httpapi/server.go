package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"botfarm.ai/internal/agentsync"
	"botfarm.ai/internal/protocol"
)

// Syncer resolves one raw sync payload.
type Syncer interface {
	Sync(ctx context.Context, raw []byte) agentsync.Result
}

type Config struct {
	Syncer       Syncer
	Logger       *log.Logger
	MaxBodyBytes int64
	// RateLimiter guards the sync route when set.
	RateLimiter *RateLimiter
	// WS, when set, is mounted at protocol.PathWS.
	WS             http.Handler
	ServerMessage  string
	TracerProvider trace.TracerProvider
}

type Server struct {
	syncer   Syncer
	logger   *log.Logger
	maxBody  int64
	limiter  *RateLimiter
	ws       http.Handler
	message  string
	tracerTP trace.TracerProvider
}

const DefaultServerMessage = "Botfarm Go Agent Server"

func NewServer(cfg Config) (*Server, error) {
	if cfg.Syncer == nil {
		return nil, fmt.Errorf("nil syncer")
	}
	s := &Server{
		syncer:   cfg.Syncer,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
		limiter:  cfg.RateLimiter,
		ws:       cfg.WS,
		message:  cfg.ServerMessage,
		tracerTP: cfg.TracerProvider,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.maxBody <= 0 {
		s.maxBody = 4 << 20
	}
	if s.message == "" {
		s.message = DefaultServerMessage
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.handleRoot)

	var sync http.Handler = http.HandlerFunc(s.handleSync)
	if s.limiter != nil {
		sync = s.limiter.Middleware(sync)
	}
	mux.Handle(protocol.PathSync, sync)
	if s.ws != nil {
		mux.Handle(protocol.PathWS, s.ws)
	}

	var opts []otelhttp.Option
	if s.tracerTP != nil {
		opts = append(opts, otelhttp.WithTracerProvider(s.tracerTP))
	}
	return otelhttp.NewHandler(mux, "agentserver", opts...)
}

func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"message": s.message})
}

func (s *Server) handleSync(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.Header().Set("Allow", http.MethodPost)
		writeError(rw, http.StatusMethodNotAllowed, protocol.ErrProtoBadRequest, "Method Not Allowed")
		return
	}

	body, err := readBody(r, s.maxBody)
	_ = r.Body.Close()
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrProtoTooLarge, "Request Entity Too Large")
			return
		}
		s.logger.Printf("bad body: remote=%s err=%v", r.RemoteAddr, err)
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, "bad body")
		return
	}

	res := s.syncer.Sync(r.Context(), body)
	writeBody(rw, r, res.Outcome.StatusCode(), res.Body)
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func writeError(rw http.ResponseWriter, status int, code, detail string) {
	writeJSON(rw, status, errorBody{Detail: detail, Code: code})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("content-type", "application/json")
	rw.WriteHeader(status)
	_, _ = rw.Write(b)
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(enc, "gzip") {
			return true
		}
	}
	return false
}
