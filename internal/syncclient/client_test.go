package syncclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"botfarm.ai/internal/agentsync"
	"botfarm.ai/internal/protocol"
	"botfarm.ai/internal/protocol/protocoltest"
	"botfarm.ai/internal/protocol/syncschema"
	"botfarm.ai/internal/transport/httpapi"
	"botfarm.ai/internal/transport/ws"
)

func echoDecider(text string) agentsync.DecisionFunc {
	return func(_ context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
			{AgentStatus: protocol.StatusRunning, Body: protocol.ActionBatch{{Kind: protocol.Speak(text + req.Input.SyncID)}}},
		}}, nil
	}
}

func newServer(t *testing.T, d agentsync.Decider) *httptest.Server {
	t.Helper()
	svc := agentsync.New(agentsync.Options{Decider: d})
	s, err := httpapi.NewServer(httpapi.Config{
		Syncer: svc,
		WS:     ws.NewServer(svc, nil, 0).Handler(),
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_HTTPSync(t *testing.T) {
	ts := newServer(t, echoDecider("echo "))
	for _, gz := range []bool{false, true} {
		c := New(ts.URL, Options{Gzip: gz})
		out, err := c.Sync(context.Background(), protocoltest.SampleRequest("default"))
		if err != nil {
			t.Fatalf("gzip=%v sync: %v", gz, err)
		}
		acts := out.Actions()
		if len(acts) != 1 || acts[0].Kind != protocol.Speak("echo sync-1") {
			t.Fatalf("gzip=%v actions=%+v", gz, acts)
		}
		if out.Outputs[0].AgentStatus != protocol.StatusRunning {
			t.Fatalf("status=%q", out.Outputs[0].AgentStatus)
		}
	}
}

func TestClient_FillsSyncID(t *testing.T) {
	ts := newServer(t, echoDecider(""))
	c := New(ts.URL, Options{NewSyncID: func() string { return "generated" }})
	req := protocoltest.SampleRequest("default")
	req.Input.SyncID = ""
	out, err := c.Sync(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if acts := out.Actions(); acts[0].Kind != protocol.Speak("generated") {
		t.Fatalf("actions=%+v", acts)
	}
}

func TestClient_Rejected(t *testing.T) {
	ts := newServer(t, echoDecider(""))
	c := New(ts.URL, Options{})
	bad := protocoltest.SampleRequest("default")
	bad.Input.NewObservations.ActivityStreamEntries[0].ActionType = "Teleport"
	_, err := c.Sync(context.Background(), bad)

	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rej.SyncID != "sync-1" || len(rej.Errors) != 1 || rej.Errors[0].Type != syncschema.TypeEnum {
		t.Fatalf("rejected=%+v", rej)
	}
}

func TestClient_FaultIsStatusError(t *testing.T) {
	ts := newServer(t, agentsync.DecisionFunc(func(context.Context, protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
		return protocol.AgentSyncResponse{}, errors.New("boom")
	}))
	_, err := New(ts.URL, Options{}).Sync(context.Background(), protocoltest.SampleRequest("default"))
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 500 || se.Detail != "Internal Server Error" {
		t.Fatalf("err=%v", err)
	}
}

func TestClient_StrictResponseDecode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("content-type", "application/json")
		_, _ = rw.Write([]byte(`{"outputs":[{"actions":[{"actionUniqueId":"a","speak":"x","recordThought":"y"}],"promptUsages":[]}]}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, Options{}).Sync(context.Background(), protocoltest.SampleRequest("default"))
	var de *syncschema.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !strings.Contains(de.Error(), "exactly one") {
		t.Fatalf("err=%v", de)
	}
}

func TestWSClient_Sync(t *testing.T) {
	ts := newServer(t, echoDecider("ws "))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + protocol.PathWS
	c, err := DialWS(context.Background(), url, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for _, id := range []string{"t1", "t2"} {
		req := protocoltest.SampleRequest("default")
		req.Input.SyncID = id
		out, err := c.Sync(context.Background(), req)
		if err != nil {
			t.Fatalf("sync %s: %v", id, err)
		}
		if acts := out.Actions(); len(acts) != 1 || acts[0].Kind != protocol.Speak("ws "+id) {
			t.Fatalf("actions=%+v", acts)
		}
	}

	bad := protocoltest.SampleRequest("default")
	bad.Input.SyncID = "t3"
	bad.Input.NewObservations.ActivityStreamEntries[0].ActionType = "Teleport"
	_, err = c.Sync(context.Background(), bad)
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.SyncID != "t3" {
		t.Fatalf("err=%v", err)
	}
}
