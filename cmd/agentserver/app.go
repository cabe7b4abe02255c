package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"botfarm.ai/internal/agentsync"
	"botfarm.ai/internal/config"
	"botfarm.ai/internal/decision"
	"botfarm.ai/internal/persistence/synclog"
	"botfarm.ai/internal/persistence/usagedb"
	"botfarm.ai/internal/transport/httpapi"
	"botfarm.ai/internal/transport/ws"
)

// app is the wired agent server: decision registry, recorders and
// transports.
type app struct {
	registry *decision.Registry
	service  *agentsync.Service
	server   *httpapi.Server
	limiter  *httpapi.RateLimiter
	syncLog  *synclog.Logger
	usage    *usagedb.Collector
	logger   *log.Logger
}

func newApp(cfg config.Config, tp trace.TracerProvider, logger *log.Logger) (*app, error) {
	a := &app{logger: logger}

	reg, err := decision.NewReference(cfg.ScriptAgent.AgentTypes, cfg.ScriptAgent.Script, cfg.DefaultAgent.SpeakText)
	if err != nil {
		return nil, err
	}
	a.registry = reg

	var recorders []agentsync.Recorder
	if cfg.SyncLog.Enabled {
		a.syncLog = synclog.New(cfg.DataDir, synclog.Options{
			IncludePayloads: cfg.SyncLog.IncludePayloads,
			Logger:          logger,
		})
		recorders = append(recorders, a.syncLog)
	}
	if cfg.UsageDB.Enabled {
		a.usage, err = usagedb.OpenSQLite(cfg.UsageDBPath(), usagedb.Options{Logger: logger})
		if err != nil {
			a.Close()
			return nil, err
		}
		recorders = append(recorders, a.usage)
		logger.Printf("usage db: %s", cfg.UsageDBPath())
	}

	a.service = agentsync.New(agentsync.Options{
		Decider:        reg,
		Logger:         logger,
		Recorders:      recorders,
		TracerProvider: tp,
	})

	hc := httpapi.Config{
		Syncer:         a.service,
		Logger:         logger,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TracerProvider: tp,
	}
	if cfg.RateLimitRPS > 0 {
		a.limiter = httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		hc.RateLimiter = a.limiter
	}
	if cfg.WSEnabled {
		hc.WS = ws.NewServer(a.service, logger, cfg.MaxBodyBytes).Handler()
	}
	a.server, err = httpapi.NewServer(hc)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Handler() http.Handler { return a.server.Handler() }

// archiveLoop moves finished sync log hours older than after into the
// archive, once at start and then hourly, until ctx is done.
func (a *app) archiveLoop(ctx context.Context, after time.Duration) {
	if a.syncLog == nil || after <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		moved, err := a.syncLog.Archive(time.Now().Add(-after))
		if err != nil {
			a.logger.Printf("sync log archive: %v", err)
		} else if len(moved) > 0 {
			a.logger.Printf("sync log archive: moved %d files", len(moved))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *app) Close() error {
	var errs []error
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.usage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.usage.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
		if err := a.usage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.syncLog != nil {
		if err := a.syncLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		a.logger.Printf("close: %v", err)
	}
	return err
}
