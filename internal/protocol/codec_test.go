package protocol

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestAction_RoundTripEveryKind(t *testing.T) {
	kinds := []ActionKind{
		WalkAction{Location: Vector2{X: 1.5, Y: -2}},
		PickUpEntity{TargetEntityID: "e1"},
		UseEquippedToolItemOnEntity{TargetEntityID: "tree-3"},
		UseEquippedToolItem{},
		DropInventoryItem{ItemConfigKey: "wood", StackIndex: intPtr(0), Amount: intPtr(2)},
		DropInventoryItem{ItemConfigKey: "wood"},
		EquipInventoryItem{ItemConfigKey: "axe", StackIndex: intPtr(1)},
		CraftItem{ItemConfigKey: "bread"},
		Speak("hello"),
		RecordThought("I should eat"),
	}
	for _, k := range kinds {
		in := Action{ActionUniqueID: "a-1", Reason: "because", FacialExpressionEmoji: ":)", Kind: k}
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("%T: marshal: %v", k, err)
		}
		var out Action
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("%T: unmarshal %s: %v", k, b, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("%T: round trip mismatch:\n in=%#v\nout=%#v", k, in, out)
		}
		if out.VariantKey() != k.actionKey() {
			t.Fatalf("%T: variant key=%q", k, out.VariantKey())
		}
	}
}

func TestAction_WireShape(t *testing.T) {
	b, err := json.Marshal(Action{ActionUniqueID: "x", Kind: UseEquippedToolItem{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"actionUniqueId":"x","useEquippedToolItem":{}}`; got != want {
		t.Fatalf("wire=%s want %s", got, want)
	}
	b, err = json.Marshal(Action{ActionUniqueID: "y", Kind: Speak("")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"actionUniqueId":"y","speak":""}`; got != want {
		t.Fatalf("wire=%s want %s", got, want)
	}
}

func TestAction_ExactlyOneVariant(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"actionUniqueId":"a"}`), &a)
	var ve *VariantError
	if !errors.As(err, &ve) || len(ve.Fields) != 0 {
		t.Fatalf("expected empty variant error, got %v", err)
	}

	err = json.Unmarshal([]byte(`{"actionUniqueId":"a","walk":{"location":{"x":1,"y":2}},"speak":"hi"}`), &a)
	if !errors.As(err, &ve) {
		t.Fatalf("expected variant error, got %v", err)
	}
	if !reflect.DeepEqual(ve.Fields, []string{"walk", "speak"}) {
		t.Fatalf("fields=%v", ve.Fields)
	}

	// Explicit null is the same as absent.
	err = json.Unmarshal([]byte(`{"actionUniqueId":"a","walk":{"location":{"x":1,"y":2}},"speak":null}`), &a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := a.Kind.(WalkAction); !ok {
		t.Fatalf("kind=%T", a.Kind)
	}
}

func TestAction_MarshalWithoutKindFails(t *testing.T) {
	_, err := json.Marshal(Action{ActionUniqueID: "a"})
	if !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("expected ErrVariantInvariant, got %v", err)
	}
}

func TestEntityInfo_AtMostOneCapability(t *testing.T) {
	var e EntityInfo
	raw := `{"observedAtSimulationTime":3,"entityId":"e","location":{"x":0,"y":0},"isStale":false,"isVisible":true}`
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Capability != nil {
		t.Fatalf("expected no capability, got %T", e.Capability)
	}

	raw = `{"observedAtSimulationTime":3,"entityId":"e","location":{"x":0,"y":0},` +
		`"itemInfo":{"itemConfigKey":"wood","itemName":"Wood","description":"","canBePickedUp":true,"amount":1},` +
		`"damageableInfo":{"hp":3},"isStale":false,"isVisible":true}`
	err := json.Unmarshal([]byte(raw), &e)
	var ve *VariantError
	if !errors.As(err, &ve) || ve.Type != "EntityInfo" {
		t.Fatalf("expected EntityInfo variant error, got %v", err)
	}
}

func TestEntityInfo_CharacterRoundTrip(t *testing.T) {
	in := EntityInfo{
		ObservedAtSimulationTime: 12.5,
		EntityID:                 "c1",
		Location:                 Vector2{X: 3, Y: 4},
		Capability: CharacterEntityInfo{
			Name:             "Ada",
			Gender:           "female",
			SkinColor:        "brown",
			Age:              30,
			Description:      "farmer",
			EquippedItemInfo: &ItemInfo{Name: "Axe", ItemConfigKey: "axe"},
		},
		IsVisible: true,
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out EntityInfo
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("mismatch:\n in=%#v\nout=%#v", in, out)
	}
	if c, ok := out.CharacterInfo(); !ok || c.Name != "Ada" {
		t.Fatalf("CharacterInfo()=%v %v", c, ok)
	}
	if _, ok := out.ItemInfo(); ok {
		t.Fatalf("ItemInfo() should be absent")
	}
}

func TestEntityObservationEvent_ExactlyOne(t *testing.T) {
	var ev EntityObservationEvent
	if err := json.Unmarshal([]byte(`{}`), &ev); !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("expected variant error, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"entityDestroyed":{"entityId":"e9"}}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d, ok := ev.Kind.(ObservedEntityDestroyed); !ok || d.EntityID != "e9" {
		t.Fatalf("kind=%#v", ev.Kind)
	}
	if _, err := json.Marshal(EntityObservationEvent{}); !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("expected marshal failure, got %v", err)
	}
}

func TestEnums_Closed(t *testing.T) {
	var r ActionResultType
	if err := json.Unmarshal([]byte(`"InvalidTargetEntityId"`), &r); err != nil || r != ResultInvalidTargetEntityID {
		t.Fatalf("got %q err=%v", r, err)
	}
	if err := json.Unmarshal([]byte(`"Exploded"`), &r); err == nil {
		t.Fatalf("expected unknown ActionResultType rejected")
	}
	if err := json.Unmarshal([]byte(`null`), &r); err != nil || r != "" {
		t.Fatalf("null: got %q err=%v", r, err)
	}

	var s AgentStatus
	if err := json.Unmarshal([]byte(`"Sleeping"`), &s); err == nil {
		t.Fatalf("expected unknown AgentStatus rejected")
	}
	for _, st := range AgentStatuses {
		if !st.Valid() {
			t.Fatalf("%q should be valid", st)
		}
	}
	for _, at := range ActionTypes {
		if !at.Valid() {
			t.Fatalf("%q should be valid", at)
		}
	}
	if len(ActionResultTypes) != 17 {
		t.Fatalf("ActionResultTypes=%d", len(ActionResultTypes))
	}
}

func TestItemCollection_AmountsAreAdditive(t *testing.T) {
	c := ItemCollection{Entries: []ItemCollectionEntry{
		{ItemConfigKey: "wood", Amount: 2},
		{ItemConfigKey: "stone", Amount: 1},
		{ItemConfigKey: "wood", Amount: 3},
	}}
	if got := c.Amount("wood"); got != 5 {
		t.Fatalf("wood=%d", got)
	}
	if got := c.Amount("gold"); got != 0 {
		t.Fatalf("gold=%d", got)
	}
	b, _ := json.Marshal(ItemCollection{})
	if string(b) != `{"entries":[]}` {
		t.Fatalf("empty collection=%s", b)
	}
}

func TestAgentSyncOutput_Heartbeat(t *testing.T) {
	b, err := json.Marshal(AgentSyncOutput{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"promptUsages":[]}` {
		t.Fatalf("heartbeat=%s", b)
	}
	var o AgentSyncOutput
	if err := json.Unmarshal([]byte(`{}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.BodyKey() != "" {
		t.Fatalf("expected heartbeat, got %q", o.BodyKey())
	}
}

func TestAgentSyncOutput_AtMostOneBody(t *testing.T) {
	var o AgentSyncOutput
	err := json.Unmarshal([]byte(`{"scriptToRun":{"scriptId":"s","script":"x"},"error":"boom"}`), &o)
	var ve *VariantError
	if !errors.As(err, &ve) || ve.Type != "AgentSyncOutput" {
		t.Fatalf("expected output variant error, got %v", err)
	}
	if !reflect.DeepEqual(ve.Fields, []string{"scriptToRun", "error"}) {
		t.Fatalf("fields=%v", ve.Fields)
	}

	err = json.Unmarshal([]byte(`{"agentStatus":"Running","startedRunningPrompt":{"prompt":"p","promptId":"1","description":"d","inputTokens":7}}`), &o)
	if err != nil {
		t.Fatalf("status with prompt info: %v", err)
	}
	if o.AgentStatus != StatusRunning || o.BodyKey() != "startedRunningPrompt" {
		t.Fatalf("output=%#v", o)
	}
}

func TestAgentSyncResponse_EmptyOutputs(t *testing.T) {
	b, err := json.Marshal(AgentSyncResponse{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"outputs":[]}` {
		t.Fatalf("empty response=%s", b)
	}
}

func TestAgentSyncResponse_ValidateLocatesAction(t *testing.T) {
	resp := AgentSyncResponse{Outputs: []AgentSyncOutput{
		{AgentStatus: StatusIdle},
		{Body: ActionBatch{{ActionUniqueID: "ok", Kind: Speak("hi")}, {ActionUniqueID: "bad"}}},
	}}
	err := resp.Validate()
	var ve *VariantError
	if !errors.As(err, &ve) {
		t.Fatalf("expected variant error, got %v", err)
	}
	if ve.Path != "outputs[1].actions[1]" {
		t.Fatalf("path=%q", ve.Path)
	}
	if !strings.Contains(err.Error(), "outputs[1].actions[1]") {
		t.Fatalf("error should name location: %v", err)
	}
	if _, err := json.Marshal(resp); !errors.Is(err, ErrVariantInvariant) {
		t.Fatalf("marshal should fail with ErrVariantInvariant, got %v", err)
	}
}

func TestAgentSyncResponse_PreservesOrderAndAnnotations(t *testing.T) {
	in := AgentSyncResponse{Outputs: []AgentSyncOutput{
		{AgentStatus: StatusRunning, Body: RunningPromptInfo{Prompt: "p", PromptID: "1", Description: "plan", InputTokens: 100}},
		{
			Body: PromptResultInfo{Response: "r", PromptID: "1", Description: "plan", CompletionTokens: 20},
			PromptUsages: []PromptUsageInfo{{
				Usage:             PromptUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
				ModelUsagePricing: ModelUsagePricing{ModelID: "m", CostPer1kInput: 0.5, CostPer1kOutput: 1.5},
			}},
		},
		{Body: ActionBatch{
			{ActionUniqueID: "1", Kind: WalkAction{Location: Vector2{X: 1, Y: 1}}},
			{ActionUniqueID: "2", Kind: Speak("arrived")},
		}},
		{DebugInfoByKey: map[string]string{"memory": "fresh"}},
		{Body: ScriptToRun{ScriptID: "s1", Script: "speak('hi')"}},
		{Body: ErrorMessage("tool failed"), AgentStatus: StatusError},
	}}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out AgentSyncResponse
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Outputs) != len(in.Outputs) {
		t.Fatalf("outputs=%d", len(out.Outputs))
	}
	for i := range in.Outputs {
		if in.Outputs[i].BodyKey() != out.Outputs[i].BodyKey() {
			t.Fatalf("output %d body %q != %q", i, out.Outputs[i].BodyKey(), in.Outputs[i].BodyKey())
		}
		if in.Outputs[i].AgentStatus != out.Outputs[i].AgentStatus {
			t.Fatalf("output %d status %q", i, out.Outputs[i].AgentStatus)
		}
	}
	if !reflect.DeepEqual(in.Outputs[2].Body, out.Outputs[2].Body) {
		t.Fatalf("actions mismatch: %#v", out.Outputs[2].Body)
	}
	if !reflect.DeepEqual(in.Outputs[1].PromptUsages, out.Outputs[1].PromptUsages) {
		t.Fatalf("prompt usages mismatch: %#v", out.Outputs[1].PromptUsages)
	}
	ids := []string{}
	for _, a := range out.Actions() {
		ids = append(ids, a.ActionUniqueID)
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("Actions()=%v", ids)
	}
}

func TestObservations_EmptyListsEncodeAsArrays(t *testing.T) {
	b, err := json.Marshal(Observations{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"entityObservationEvents":[],"scriptExecutionErrors":[],"movementRecords":[],"activityStreamEntries":[],"actionResults":[],"startedActionUniqueIds":[]}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
	if !(Observations{}).Empty() {
		t.Fatalf("expected Empty()")
	}
}

func TestActivityStreamEntry_VisibleTo(t *testing.T) {
	shared := ActivityStreamEntry{Time: 1, SourceEntityID: "a"}
	if !shared.VisibleTo("z") {
		t.Fatalf("shared entry should be visible to everyone")
	}
	private := ActivityStreamEntry{Time: 1, SourceEntityID: "a", TargetEntityID: "b", OnlyShowForPerspectiveEntity: true}
	if !private.VisibleTo("a") || !private.VisibleTo("b") || private.VisibleTo("z") {
		t.Fatalf("private entry visibility wrong")
	}
}

func TestObservations_ReportedActivity(t *testing.T) {
	obs := Observations{ActivityStreamEntries: []ActivityStreamEntry{
		{Time: 1, Title: "shared", ShouldReportToAI: true, SourceEntityID: "b"},
		{Time: 2, Title: "quiet", SourceEntityID: "a"},
		{Time: 3, Title: "mine", ShouldReportToAI: true, SourceEntityID: "a", OnlyShowForPerspectiveEntity: true},
		{Time: 4, Title: "theirs", ShouldReportToAI: true, SourceEntityID: "b", TargetEntityID: "c", OnlyShowForPerspectiveEntity: true},
		{Time: 5, Title: "at me", ShouldReportToAI: true, SourceEntityID: "b", TargetEntityID: "a", OnlyShowForPerspectiveEntity: true},
	}}
	var got []string
	for _, e := range obs.ReportedActivity("a") {
		got = append(got, e.Title)
	}
	if want := []string{"shared", "mine", "at me"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if n := len((Observations{}).ReportedActivity("a")); n != 0 {
		t.Fatalf("empty observations reported %d", n)
	}
}

func TestDecodeBase(t *testing.T) {
	base, err := DecodeBase([]byte(`{"input":{"agentType":"script","syncId":"s1","agentId":"a1","extra":1}}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if base.Input.AgentType != AgentTypeScript || base.Input.SyncID != "s1" || base.Input.AgentID != "a1" {
		t.Fatalf("base=%+v", base)
	}
}
