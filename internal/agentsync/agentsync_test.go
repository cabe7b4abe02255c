package agentsync

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/protocoltest"
)

func speakDecider(text string) DecisionFunc {
	return func(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
			{Body: protocol.ActionBatch{{Kind: protocol.Speak(text)}}},
		}}, nil
	}
}

func TestSync_Success(t *testing.T) {
	var recs []Record
	var mu sync.Mutex
	svc := New(Options{
		Decider:     speakDecider("hello"),
		NewActionID: func() string { return "fixed-id" },
		Recorders: []Recorder{RecorderFunc(func(_ context.Context, rec Record) {
			mu.Lock()
			recs = append(recs, rec)
			mu.Unlock()
		})},
	})
	res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v err=%v", res.Outcome, res.Err())
	}
	var out protocol.AgentSyncResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	actions := out.Actions()
	if len(actions) != 1 || actions[0].ActionUniqueID != "fixed-id" || actions[0].Kind != protocol.Speak("hello") {
		t.Fatalf("actions=%+v", actions)
	}
	if res.Base.Input.SyncID != "sync-1" {
		t.Fatalf("base=%+v", res.Base)
	}
	if len(recs) != 1 || recs[0].Outcome != "success" || recs[0].SimulationID != "sim-1" {
		t.Fatalf("records=%+v", recs)
	}
}

func TestSync_KeepsDeciderActionIDs(t *testing.T) {
	batch := protocol.ActionBatch{{ActionUniqueID: "mine", Kind: protocol.RecordThought("x")}, {Kind: protocol.Speak("y")}}
	svc := New(Options{
		Decider: DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
			return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{{Body: batch}}}, nil
		}),
		NewActionID: func() string { return "gen" },
	})
	res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v err=%v", res.Outcome, res.Err())
	}
	got := res.Response.Actions()
	if got[0].ActionUniqueID != "mine" || got[1].ActionUniqueID != "gen" {
		t.Fatalf("ids=%q,%q", got[0].ActionUniqueID, got[1].ActionUniqueID)
	}
	if batch[1].ActionUniqueID != "" {
		t.Fatalf("decider batch was mutated")
	}
}

func TestSync_DecodeFailureNeverReachesDecider(t *testing.T) {
	called := false
	svc := New(Options{Decider: DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		called = true
		return protocol.AgentSyncResponse{}, nil
	})})

	var doc map[string]any
	if err := json.Unmarshal(protocoltest.SampleRequestJSON("default"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	input := doc["input"].(map[string]any)
	delete(input, "simulationId")
	delete(input, "gameConstants")
	raw, _ := json.Marshal(doc)

	res := svc.Sync(context.Background(), raw)
	if res.Outcome != OutcomeDecodeFailed {
		t.Fatalf("outcome=%v", res.Outcome)
	}
	if called {
		t.Fatalf("decider must not run on decode failure")
	}
	var body struct {
		ValidationError []struct {
			Loc  []any  `json:"loc"`
			Msg  string `json:"msg"`
			Type string `json:"type"`
		} `json:"validation_error"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(body.ValidationError) != 2 {
		t.Fatalf("validation_error=%+v", body.ValidationError)
	}
	if res.Base.Input.SyncID != "sync-1" {
		t.Fatalf("base should still be peeked: %+v", res.Base)
	}
}

func TestSync_DecodeFailureRecordCarriesCode(t *testing.T) {
	var recs []Record
	svc := New(Options{
		Decider: speakDecider("x"),
		Recorders: []Recorder{RecorderFunc(func(_ context.Context, rec Record) {
			recs = append(recs, rec)
		})},
	})
	svc.Sync(context.Background(), []byte(`{"input":{"syncId":"s1"}}`))
	if len(recs) != 1 {
		t.Fatalf("records=%d", len(recs))
	}
	rec := recs[0]
	if rec.Outcome != "decode_failed" || rec.FaultCode != protocol.ErrDecode || len(rec.Errors) == 0 {
		t.Fatalf("record=%+v", rec)
	}
	if rec.Fault != "" {
		t.Fatalf("decode failure has no fault text: %q", rec.Fault)
	}
}

func TestSync_FaultsAreOpaque(t *testing.T) {
	cases := map[string]Decider{
		"error": DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
			return protocol.AgentSyncResponse{}, errors.New("model backend: secret-host:8443 refused")
		}),
		"panic": DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
			panic("secret-host exploded")
		}),
		"variant": DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
			return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
				{Body: protocol.ActionBatch{{ActionUniqueID: "a", Reason: "secret-host"}}},
			}}, nil
		}),
	}
	for name, d := range cases {
		svc := New(Options{Decider: d})
		res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
		if res.Outcome != OutcomeFault {
			t.Fatalf("%s: outcome=%v", name, res.Outcome)
		}
		if string(res.Body) != `{"detail":"Internal Server Error"}` {
			t.Fatalf("%s: body=%s", name, res.Body)
		}
		if strings.Contains(string(res.Body), "secret") {
			t.Fatalf("%s: body leaks cause", name)
		}
		if res.Fault.Code != protocol.ErrInternal {
			t.Fatalf("%s: code=%s", name, res.Fault.Code)
		}
	}

	svc := New(Options{Decider: cases["variant"]})
	res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	if !errors.Is(res.Err(), protocol.ErrVariantInvariant) {
		t.Fatalf("variant fault should wrap ErrVariantInvariant: %v", res.Err())
	}
}

func TestSync_NoDecider(t *testing.T) {
	res := New(Options{}).Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	if res.Outcome != OutcomeFault || res.Fault.Code != protocol.ErrNoDecision {
		t.Fatalf("res=%+v", res)
	}
}

func TestSync_EmptyResponse(t *testing.T) {
	svc := New(Options{Decider: DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		return protocol.AgentSyncResponse{}, nil
	})})
	res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON("default"))
	if res.Outcome != OutcomeSuccess || string(res.Body) != `{"outputs":[]}` {
		t.Fatalf("outcome=%v body=%s", res.Outcome, res.Body)
	}
}

func TestSync_ConcurrentCallsAreIndependent(t *testing.T) {
	svc := New(Options{Decider: DecisionFunc(func(_ context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
			{Body: protocol.ActionBatch{{Kind: protocol.Speak(req.Input.AgentType)}}},
		}}, nil
	})})
	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		agentType := "t" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := svc.Sync(context.Background(), protocoltest.SampleRequestJSON(agentType))
			if res.Outcome != OutcomeSuccess {
				errs <- agentType + ": " + res.Outcome.String()
				return
			}
			if got := res.Response.Actions()[0].Kind; got != protocol.Speak(agentType) {
				errs <- agentType + ": crossed response"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}
