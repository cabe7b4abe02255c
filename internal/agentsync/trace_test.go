package agentsync

import (
	"context"
	"encoding/json"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/protocoltest"
)

func TestSync_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	svc := New(Options{Decider: speakDecider("x"), TracerProvider: tp})

	svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	svc.Sync(context.Background(), []byte(`{"input":{}}`))

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans=%d", len(spans))
	}
	outcome := func(s sdktrace.ReadOnlySpan) string {
		for _, kv := range s.Attributes() {
			if kv.Key == attribute.Key("sync.outcome") {
				return kv.Value.AsString()
			}
		}
		return ""
	}
	if spans[0].Name() != "agentsync.Sync" || outcome(spans[0]) != "success" {
		t.Fatalf("span0 %s outcome=%s", spans[0].Name(), outcome(spans[0]))
	}
	if outcome(spans[1]) != "decode_failed" || spans[1].Status().Code != codes.Error {
		t.Fatalf("span1 outcome=%s status=%v", outcome(spans[1]), spans[1].Status())
	}
	if spans[1].Status().Description != protocol.ErrDecode {
		t.Fatalf("span1 status=%v", spans[1].Status())
	}
}

func TestSync_SpanCountsReportedActivity(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	svc := New(Options{Decider: speakDecider("x"), TracerProvider: tp})

	req := protocoltest.SampleRequest("default")
	obs := &req.Input.NewObservations
	obs.ActivityStreamEntries[0].ShouldReportToAI = true
	obs.ActivityStreamEntries = append(obs.ActivityStreamEntries,
		protocol.ActivityStreamEntry{Time: 9, ShouldReportToAI: true, SourceEntityID: "other", OnlyShowForPerspectiveEntity: true},
		protocol.ActivityStreamEntry{Time: 9, SourceEntityID: "self-1"},
	)
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if res := svc.Sync(context.Background(), raw); res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v body=%s", res.Outcome, res.Body)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=%d", len(spans))
	}
	counts := map[attribute.Key]int64{}
	for _, ev := range spans[0].Events() {
		if ev.Name != "decoded" {
			continue
		}
		for _, kv := range ev.Attributes {
			counts[kv.Key] = kv.Value.AsInt64()
		}
	}
	if counts["observations.activity"] != 3 || counts["observations.activity.reported"] != 1 {
		t.Fatalf("counts=%v", counts)
	}
}
