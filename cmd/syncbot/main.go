package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/syncclient"
)

type syncer interface {
	Sync(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error)
}

func main() {
	var (
		url       = flag.String("url", "http://localhost:8080", "agent server base url (http://) or ws url (ws://.../v1/ws)")
		agentType = flag.String("agent_type", "default", "agentType sent with each sync")
		agentID   = flag.String("agent", "bot-1", "agent id")
		simID     = flag.String("sim", "sim-local", "simulation id")
		ticks     = flag.Int("ticks", 5, "number of sync calls (0 = until interrupted)")
		interval  = flag.Duration("interval", time.Second, "delay between sync calls")
		gz        = flag.Bool("gzip", false, "compress request bodies")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[syncbot] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := syncclient.Options{Gzip: *gz}
	var c syncer
	if strings.HasPrefix(*url, "ws://") || strings.HasPrefix(*url, "wss://") {
		wc, err := syncclient.DialWS(ctx, *url, opts)
		if err != nil {
			logger.Fatalf("dial: %v", err)
		}
		defer wc.Close()
		c = wc
	} else {
		c = syncclient.New(*url, opts)
	}

	sim := newSimulation(*agentType, protocol.AgentID(*agentID), protocol.SimulationID(*simID))
	t := time.NewTicker(*interval)
	defer t.Stop()
	for i := 0; *ticks == 0 || i < *ticks; i++ {
		req := sim.next(*interval)
		resp, err := c.Sync(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Printf("sync t=%.1f: %v", req.Input.SimulationTime, err)
		} else {
			sim.apply(resp)
			for _, line := range describe(resp) {
				logger.Printf("t=%.1f %s", req.Input.SimulationTime, line)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func describe(resp protocol.AgentSyncResponse) []string {
	if len(resp.Outputs) == 0 {
		return []string{"(no outputs)"}
	}
	var out []string
	for i, o := range resp.Outputs {
		prefix := fmt.Sprintf("output[%d]", i)
		if o.AgentStatus != "" {
			prefix += " status=" + string(o.AgentStatus)
		}
		switch b := o.Body.(type) {
		case nil:
			out = append(out, prefix+" heartbeat")
		case protocol.ActionBatch:
			for _, a := range b {
				out = append(out, fmt.Sprintf("%s action id=%s %s", prefix, a.ActionUniqueID, a.VariantKey()))
			}
		case protocol.ScriptToRun:
			out = append(out, fmt.Sprintf("%s script id=%s %q", prefix, b.ScriptID, b.Script))
		case protocol.ErrorMessage:
			out = append(out, fmt.Sprintf("%s error %q", prefix, string(b)))
		default:
			out = append(out, fmt.Sprintf("%s %s", prefix, o.BodyKey()))
		}
	}
	return out
}
