package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botfarm.ai/internal/config"
	"botfarm.ai/internal/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to agentserver.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "disable the usage collector")
		disableLog = flag.Bool("disable_sync_log", false, "disable the sync log")
		traceOut   = flag.Bool("trace_stdout", false, "export spans to stdout")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[agentserver] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		logger.Fatalf("env config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *disableDB {
		cfg.UsageDB.Enabled = false
	}
	if *disableLog {
		cfg.SyncLog.Enabled = false
	}
	if *traceOut {
		cfg.Tracing.Stdout = true
	}

	ctx, cancel := signalContext()
	defer cancel()

	tp, shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Stdout:      cfg.Tracing.Stdout,
	})
	if err != nil {
		logger.Fatalf("telemetry: %v", err)
	}
	defer func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = shutdownTracing(ctx2)
	}()

	app, err := newApp(cfg, tp, logger)
	if err != nil {
		logger.Fatalf("init: %v", err)
	}
	defer app.Close()

	go app.archiveLoop(ctx, time.Duration(cfg.SyncLog.ArchiveAfterHours)*time.Hour)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}

	logger.Printf("listening on %s (agent types: %v)", ln.Addr(), app.registry.AgentTypes())
	if err := serve(ctx, srv, ln, 5*time.Second); err != nil {
		logger.Printf("serve: %v", err)
	}
}

// serve runs srv on ln until ctx is done, then returns only after in-flight
// requests have finished or grace has run out.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), grace)
		defer cancel2()
		stopped <- srv.Shutdown(ctx2)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
