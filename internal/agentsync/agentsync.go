// Package agentsync resolves one sync call: raw payload in, encoded payload
// out. It holds no state between calls.
package agentsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/syncschema"
)

// Decider produces the response for one decoded request. It is the only
// part of a sync call allowed to block.
type Decider interface {
	Decide(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error)
}

// DecisionFunc adapts a function to Decider.
type DecisionFunc func(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error)

func (f DecisionFunc) Decide(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	return f(ctx, req)
}

// Outcome is how a call resolved.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDecodeFailed
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDecodeFailed:
		return "decode_failed"
	case OutcomeFault:
		return "fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// StatusCode is the HTTP status a transport reports for the outcome.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSuccess:
		return 200
	case OutcomeDecodeFailed:
		return 422
	}
	return 500
}

// FaultError is a decision-side failure. Cause stays server-side.
type FaultError struct {
	Code  string
	Cause error
}

func (e *FaultError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Cause) }
func (e *FaultError) Unwrap() error { return e.Cause }

// Result is a resolved call. Body is ready to send for every outcome.
type Result struct {
	Outcome  Outcome
	Body     []byte
	Base     protocol.BaseRequest
	Request  *protocol.AgentSyncRequest
	Response *protocol.AgentSyncResponse
	Decode   *syncschema.DecodeError
	Fault    *FaultError
	Duration time.Duration
}

// Err returns the decode or fault error, if any.
func (r Result) Err() error {
	switch {
	case r.Decode != nil:
		return r.Decode
	case r.Fault != nil:
		return r.Fault
	}
	return nil
}

type validationErrorBody struct {
	ValidationError []syncschema.FieldError `json:"validation_error"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

// FaultBody is sent for every fault; it never carries the cause.
var FaultBody = mustJSON(detailBody{Detail: "Internal Server Error"})

type Options struct {
	Codec          *syncschema.Codec
	Decider        Decider
	Logger         *log.Logger
	Recorders      []Recorder
	TracerProvider trace.TracerProvider

	// NewActionID fills empty actionUniqueId values. Defaults to uuid.
	NewActionID func() string
	Now         func() time.Time
}

type Service struct {
	codec     *syncschema.Codec
	decider   Decider
	logger    *log.Logger
	recorders []Recorder
	tracer    trace.Tracer
	newID     func() string
	now       func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		codec:     opts.Codec,
		decider:   opts.Decider,
		logger:    opts.Logger,
		recorders: opts.Recorders,
		newID:     opts.NewActionID,
		now:       opts.Now,
	}
	if s.codec == nil {
		s.codec = syncschema.Default()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer("botfarm.ai/internal/agentsync")
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sync resolves one call. It never returns an error: every failure is
// folded into the Result and its Body.
func (s *Service) Sync(ctx context.Context, raw []byte) Result {
	start := s.now()
	base, _ := protocol.DecodeBase(raw)
	ctx, span := s.tracer.Start(ctx, "agentsync.Sync", trace.WithAttributes(
		attribute.String("agent.type", base.Input.AgentType),
		attribute.String("agent.id", base.Input.AgentID),
		attribute.String("sync.id", base.Input.SyncID),
		attribute.Int("request.bytes", len(raw)),
	))
	defer span.End()

	res := s.resolve(ctx, span, raw)
	res.Base = base
	res.Duration = s.now().Sub(start)
	span.SetAttributes(attribute.String("sync.outcome", res.Outcome.String()))

	switch res.Outcome {
	case OutcomeDecodeFailed:
		span.SetStatus(codes.Error, protocol.ErrDecode)
		s.logger.Printf("decode failed: code=%s sync_id=%s agent_id=%s errors=%d first=%v",
			protocol.ErrDecode, base.Input.SyncID, base.Input.AgentID, len(res.Decode.Errors), res.Decode)
	case OutcomeFault:
		span.RecordError(res.Fault)
		span.SetStatus(codes.Error, res.Fault.Code)
		s.logger.Printf("fault: sync_id=%s agent_id=%s agent_type=%s err=%v",
			base.Input.SyncID, base.Input.AgentID, base.Input.AgentType, res.Fault)
	}
	s.record(ctx, res)
	return res
}

func (s *Service) resolve(ctx context.Context, span trace.Span, raw []byte) Result {
	req, err := s.codec.DecodeRequest(raw)
	if err != nil {
		var de *syncschema.DecodeError
		if !errors.As(err, &de) {
			de = &syncschema.DecodeError{Errors: []syncschema.FieldError{{Loc: []any{"body"}, Msg: err.Error(), Type: syncschema.TypeValue}}}
		}
		return Result{
			Outcome: OutcomeDecodeFailed,
			Body:    mustJSON(validationErrorBody{ValidationError: de.Errors}),
			Decode:  de,
		}
	}
	span.AddEvent("decoded", trace.WithAttributes(
		attribute.Int("observations.events", len(req.Input.NewObservations.EntityObservationEvents)),
		attribute.Int("observations.activity", len(req.Input.NewObservations.ActivityStreamEntries)),
		attribute.Int("observations.activity.reported", len(req.Input.NewObservations.ReportedActivity(req.Input.SelfEntityID()))),
	))

	resp, err := s.decide(ctx, req)
	if err != nil {
		return s.fault(&req, err)
	}
	s.fillActionIDs(&resp)
	if err := resp.Validate(); err != nil {
		return s.fault(&req, err)
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return s.fault(&req, err)
	}
	span.AddEvent("encoded", trace.WithAttributes(
		attribute.Int("response.outputs", len(resp.Outputs)),
		attribute.Int("response.bytes", len(body)),
	))
	return Result{Outcome: OutcomeSuccess, Body: body, Request: &req, Response: &resp}
}

func (s *Service) decide(ctx context.Context, req protocol.AgentSyncRequest) (resp protocol.AgentSyncResponse, err error) {
	if s.decider == nil {
		return resp, &FaultError{Code: protocol.ErrNoDecision, Cause: errors.New("no decider configured")}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Code: protocol.ErrInternal, Cause: fmt.Errorf("decider panic: %v", r)}
		}
	}()
	return s.decider.Decide(ctx, req)
}

func (s *Service) fault(req *protocol.AgentSyncRequest, err error) Result {
	var fe *FaultError
	if !errors.As(err, &fe) {
		fe = &FaultError{Code: protocol.ErrInternal, Cause: err}
	}
	return Result{Outcome: OutcomeFault, Body: FaultBody, Request: req, Fault: fe}
}

// fillActionIDs gives every action without an id a fresh one. Outputs and
// batches are copied so the decider's slices are left untouched.
func (s *Service) fillActionIDs(resp *protocol.AgentSyncResponse) {
	resp.Outputs = append([]protocol.AgentSyncOutput(nil), resp.Outputs...)
	for i, o := range resp.Outputs {
		batch, ok := o.Body.(protocol.ActionBatch)
		if !ok {
			continue
		}
		filled := make(protocol.ActionBatch, len(batch))
		copy(filled, batch)
		for j := range filled {
			if filled[j].ActionUniqueID == "" {
				filled[j].ActionUniqueID = s.newID()
			}
		}
		resp.Outputs[i].Body = filled
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
