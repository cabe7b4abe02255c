// Package synclog keeps a compressed JSONL trail of resolved sync calls.
package synclog

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sort"

	"botfarm.ai/internal/agentsync"
)

// Logger writes one line per resolved sync call.
type Logger struct {
	w        *JSONLZstdWriter
	payloads bool
	logger   *log.Logger
}

type Options struct {
	// IncludePayloads keeps the decoded request and response on each line.
	IncludePayloads bool
	Logger          *log.Logger
}

// New logs to <dataDir>/sync/sync-YYYY-MM-DD-HH.jsonl.zst.
func New(dataDir string, opts Options) *Logger {
	l := &Logger{
		w:        NewJSONLZstdWriter(filepath.Join(dataDir, "sync"), "sync"),
		payloads: opts.IncludePayloads,
		logger:   opts.Logger,
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard, "", 0)
	}
	return l
}

func (l *Logger) RecordSync(_ context.Context, rec agentsync.Record) {
	if !l.payloads {
		rec.Request = nil
		rec.Response = nil
	}
	if err := l.w.Write(rec); err != nil {
		l.logger.Printf("synclog write failed: sync_id=%s err=%v", rec.SyncID, err)
	}
}

func (l *Logger) Flush() error { return l.w.Flush() }
func (l *Logger) Close() error { return l.w.Close() }

// Files lists the log files under dataDir in chronological order.
func Files(dataDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "sync", "sync-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
