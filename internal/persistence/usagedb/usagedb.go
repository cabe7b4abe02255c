// Package usagedb collects prompt usage reported in sync responses and
// prices it. It is the consumer side of PromptUsageInfo.
package usagedb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"botfarm.ai/internal/agentsync"
	"botfarm.ai/internal/protocol"
)

// Cost prices one usage entry with its own pricing snapshot.
func Cost(u protocol.PromptUsageInfo) float64 {
	p := u.ModelUsagePricing
	return float64(u.Usage.PromptTokens)/1000*p.CostPer1kInput +
		float64(u.Usage.CompletionTokens)/1000*p.CostPer1kOutput
}

type Collector struct {
	db     *sql.DB
	logger *log.Logger

	// mu orders sends on ch against close(ch).
	mu     sync.RWMutex
	closed bool
	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once

	drops atomic.Uint64
}

type req struct {
	rec   agentsync.Record
	flush chan struct{}
}

type Options struct {
	Logger *log.Logger
	// QueueSize bounds pending records; extra records are dropped.
	QueueSize int
}

func OpenSQLite(path string, opts Options) (*Collector, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = 65536
	}
	c := &Collector{
		db:     db,
		logger: opts.Logger,
		ch:     make(chan req, opts.QueueSize),
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop()
	}()
	return c, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS syncs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			agent_type TEXT NOT NULL,
			simulation_id TEXT NOT NULL,
			simulation_time REAL NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			outputs INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_syncs_agent ON syncs(agent_id, seq);`,
		`CREATE TABLE IF NOT EXISTS prompt_usages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			output_index INTEGER NOT NULL,
			model_id TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			cost_per_1k_input REAL NOT NULL,
			cost_per_1k_output REAL NOT NULL,
			cost REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_usages_agent ON prompt_usages(agent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_usages_model ON prompt_usages(model_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
		c.wg.Wait()
		err = c.db.Close()
	})
	return err
}

// RecordSync queues rec without blocking the call.
func (c *Collector) RecordSync(_ context.Context, rec agentsync.Record) {
	if c == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- req{rec: rec}:
	default:
		// The sync log remains the source of truth when the collector lags.
		c.drops.Add(1)
	}
}

// Flush waits until everything queued before it is committed.
func (c *Collector) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	done := make(chan struct{})
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil
	}
	select {
	case c.ch <- req{flush: done}:
		c.mu.RUnlock()
	case <-ctx.Done():
		c.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	DropTotal     uint64
	QueueDepth    int
	QueueCapacity int
}

func (c *Collector) Stats() Stats {
	return Stats{
		DropTotal:     c.drops.Load(),
		QueueDepth:    len(c.ch),
		QueueCapacity: cap(c.ch),
	}
}

func (c *Collector) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 500
		commitMaxWait = time.Second
	)
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			c.logger.Printf("usagedb begin failed: %v", err)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			c.logger.Printf("usagedb commit failed: %v", err)
		}
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for {
		select {
		case r, ok := <-c.ch:
			if !ok {
				commit()
				return
			}
			if r.flush != nil {
				commit()
				close(r.flush)
				continue
			}
			begin()
			if tx == nil {
				continue
			}
			// One savepoint per record: a failed insert rolls back to it and
			// the batch stays open.
			if _, err := tx.ExecContext(ctx, "SAVEPOINT rec"); err != nil {
				c.logger.Printf("usagedb savepoint failed: %v", err)
				rollback()
				continue
			}
			n, err := insertRecord(ctx, tx, r.rec)
			if err != nil {
				c.logger.Printf("usagedb insert failed: sync_id=%s err=%v", r.rec.SyncID, err)
				if _, rerr := tx.ExecContext(ctx, "ROLLBACK TO rec"); rerr != nil {
					c.logger.Printf("usagedb rollback to savepoint failed: %v", rerr)
					rollback()
					continue
				}
				n = 0
			}
			if _, err := tx.ExecContext(ctx, "RELEASE rec"); err != nil {
				c.logger.Printf("usagedb release failed: %v", err)
				rollback()
				continue
			}
			opCount += n
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec agentsync.Record) (int, error) {
	at := rec.Time.UTC().Format(time.RFC3339Nano)
	outputs, actions := 0, 0
	if rec.Response != nil {
		outputs = len(rec.Response.Outputs)
		actions = len(rec.Response.Actions())
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO syncs(sync_id,agent_id,agent_type,simulation_id,simulation_time,outcome,duration_ms,outputs,actions,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		rec.SyncID, rec.AgentID, rec.AgentType, rec.SimulationID, rec.SimulationTime,
		rec.Outcome, rec.DurationMS, outputs, actions, at,
	); err != nil {
		return 0, err
	}
	n := 1
	if rec.Response == nil {
		return n, nil
	}
	for i, o := range rec.Response.Outputs {
		for _, u := range o.PromptUsages {
			p := u.ModelUsagePricing
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO prompt_usages(sync_id,agent_id,output_index,model_id,prompt_tokens,completion_tokens,total_tokens,cost_per_1k_input,cost_per_1k_output,cost,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
				rec.SyncID, rec.AgentID, i, p.ModelID,
				u.Usage.PromptTokens, u.Usage.CompletionTokens, u.Usage.TotalTokens,
				p.CostPer1kInput, p.CostPer1kOutput, Cost(u), at,
			); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
