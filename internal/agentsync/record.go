package agentsync

import (
	"context"
	"time"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/syncschema"
)

// Record is what a Recorder sees of a resolved call.
type Record struct {
	Time           time.Time               `json:"time"`
	Outcome        string                  `json:"outcome"`
	AgentType      string                  `json:"agent_type,omitempty"`
	AgentID        string                  `json:"agent_id,omitempty"`
	SyncID         string                  `json:"sync_id,omitempty"`
	SimulationID   string                  `json:"simulation_id,omitempty"`
	SimulationTime float64                 `json:"simulation_time,omitempty"`
	DurationMS     float64                 `json:"duration_ms"`
	Errors         []syncschema.FieldError `json:"errors,omitempty"`
	FaultCode      string                  `json:"fault_code,omitempty"` // ErrDecode on decode failure
	Fault          string                  `json:"fault,omitempty"`

	Request  *protocol.AgentSyncRequest  `json:"request,omitempty"`
	Response *protocol.AgentSyncResponse `json:"response,omitempty"`
}

// Recorder observes resolved calls. Implementations must not block the
// call; slow sinks should queue and drop.
type Recorder interface {
	RecordSync(ctx context.Context, rec Record)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record)

func (f RecorderFunc) RecordSync(ctx context.Context, rec Record) { f(ctx, rec) }

// NewRecord flattens a Result.
func NewRecord(now time.Time, res Result) Record {
	rec := Record{
		Time:       now.UTC(),
		Outcome:    res.Outcome.String(),
		AgentType:  res.Base.Input.AgentType,
		AgentID:    res.Base.Input.AgentID,
		SyncID:     res.Base.Input.SyncID,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
		Request:    res.Request,
		Response:   res.Response,
	}
	if res.Request != nil {
		rec.SimulationID = res.Request.Input.SimulationID
		rec.SimulationTime = res.Request.Input.SimulationTime
	}
	if res.Decode != nil {
		rec.Errors = res.Decode.Errors
		rec.FaultCode = protocol.ErrDecode
	}
	if res.Fault != nil {
		rec.FaultCode = res.Fault.Code
		rec.Fault = res.Fault.Error()
	}
	return rec
}

func (s *Service) record(ctx context.Context, res Result) {
	if len(s.recorders) == 0 {
		return
	}
	rec := NewRecord(s.now(), res)
	for _, r := range s.recorders {
		r.RecordSync(ctx, rec)
	}
}
