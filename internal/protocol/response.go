package protocol

import (
	"encoding/json"
	"fmt"
)

type PromptUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ModelUsagePricing struct {
	ModelID         string  `json:"modelId"`
	CostPer1kInput  float64 `json:"costPer1kInput"`
	CostPer1kOutput float64 `json:"costPer1kOutput"`
}

// PromptUsageInfo reports token counts with the pricing snapshot in effect.
// Cost is derived by the consumer.
type PromptUsageInfo struct {
	Usage             PromptUsage       `json:"usage"`
	ModelUsagePricing ModelUsagePricing `json:"modelUsagePricing"`
}

// OutputBody is the single payload an output carries, if any.
type OutputBody interface {
	outputKey() string
}

type RunningPromptInfo struct {
	Prompt      string `json:"prompt"`
	PromptID    string `json:"promptId"`
	Description string `json:"description"`
	InputTokens int    `json:"inputTokens"`
}

type PromptResultInfo struct {
	Response         string `json:"response"`
	PromptID         string `json:"promptId"`
	Description      string `json:"description"`
	CompletionTokens int    `json:"completionTokens"`
}

type ScriptToRun struct {
	ScriptID string `json:"scriptId"`
	Script   string `json:"script"`
}

// ActionBatch is a batch of actions to perform in order.
type ActionBatch []Action

// ErrorMessage reports a decision-side error to the simulation.
type ErrorMessage string

func (RunningPromptInfo) outputKey() string { return "startedRunningPrompt" }
func (PromptResultInfo) outputKey() string  { return "promptResult" }
func (ActionBatch) outputKey() string       { return "actions" }
func (ScriptToRun) outputKey() string       { return "scriptToRun" }
func (ErrorMessage) outputKey() string      { return "error" }

// OutputBodyFields lists the wire keys of the output body variants.
var OutputBodyFields = []string{"startedRunningPrompt", "promptResult", "actions", "scriptToRun", "error"}

// AgentSyncOutput is one logical unit of a response. A nil Body is a
// heartbeat. AgentStatus, DebugInfoByKey and PromptUsages may accompany any
// body.
type AgentSyncOutput struct {
	AgentStatus    AgentStatus
	DebugInfoByKey map[string]string
	Body           OutputBody
	PromptUsages   []PromptUsageInfo
}

// BodyKey is the wire key of the populated body, or "" for a heartbeat.
func (o AgentSyncOutput) BodyKey() string {
	if o.Body == nil {
		return ""
	}
	return o.Body.outputKey()
}

type agentSyncOutputWire struct {
	AgentStatus          AgentStatus        `json:"agentStatus,omitempty"`
	DebugInfoByKey       map[string]string  `json:"debugInfoByKey,omitempty"`
	StartedRunningPrompt *RunningPromptInfo `json:"startedRunningPrompt,omitempty"`
	PromptResult         *PromptResultInfo  `json:"promptResult,omitempty"`
	Actions              *[]Action          `json:"actions,omitempty"`
	ScriptToRun          *ScriptToRun       `json:"scriptToRun,omitempty"`
	Error                *string            `json:"error,omitempty"`
	PromptUsages         []PromptUsageInfo  `json:"promptUsages"`
}

func (o AgentSyncOutput) MarshalJSON() ([]byte, error) {
	w := agentSyncOutputWire{
		AgentStatus:    o.AgentStatus,
		DebugInfoByKey: o.DebugInfoByKey,
		PromptUsages:   nonNil(o.PromptUsages),
	}
	switch b := o.Body.(type) {
	case nil:
	case RunningPromptInfo:
		w.StartedRunningPrompt = &b
	case PromptResultInfo:
		w.PromptResult = &b
	case ActionBatch:
		actions := nonNil([]Action(b))
		w.Actions = &actions
	case ScriptToRun:
		w.ScriptToRun = &b
	case ErrorMessage:
		s := string(b)
		w.Error = &s
	default:
		return nil, fmt.Errorf("AgentSyncOutput: unsupported body %T", o.Body)
	}
	return json.Marshal(w)
}

func (o *AgentSyncOutput) UnmarshalJSON(b []byte) error {
	var w agentSyncOutputWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var set []string
	var body OutputBody
	if w.StartedRunningPrompt != nil {
		set = append(set, "startedRunningPrompt")
		body = *w.StartedRunningPrompt
	}
	if w.PromptResult != nil {
		set = append(set, "promptResult")
		body = *w.PromptResult
	}
	if w.Actions != nil {
		set = append(set, "actions")
		body = ActionBatch(*w.Actions)
	}
	if w.ScriptToRun != nil {
		set = append(set, "scriptToRun")
		body = *w.ScriptToRun
	}
	if w.Error != nil {
		set = append(set, "error")
		body = ErrorMessage(*w.Error)
	}
	if len(set) > 1 {
		return &VariantError{Type: "AgentSyncOutput", Fields: set}
	}
	*o = AgentSyncOutput{
		AgentStatus:    w.AgentStatus,
		DebugInfoByKey: w.DebugInfoByKey,
		Body:           body,
		PromptUsages:   w.PromptUsages,
	}
	return nil
}

// AgentSyncResponse preserves output emission order; it may be empty.
type AgentSyncResponse struct {
	Outputs []AgentSyncOutput `json:"outputs"`
}

func (r AgentSyncResponse) MarshalJSON() ([]byte, error) {
	type wire AgentSyncResponse
	w := wire(r)
	w.Outputs = nonNil(w.Outputs)
	return json.Marshal(w)
}

// Validate checks every variant a decision function could leave
// unpopulated. It runs before encoding so the failure names its location.
func (r AgentSyncResponse) Validate() error {
	for i, o := range r.Outputs {
		batch, ok := o.Body.(ActionBatch)
		if !ok {
			continue
		}
		for j, a := range batch {
			if a.Kind == nil {
				return &VariantError{Type: "Action", Path: fmt.Sprintf("outputs[%d].actions[%d]", i, j)}
			}
		}
	}
	return nil
}

// Actions flattens every action batch in emission order.
func (r AgentSyncResponse) Actions() []Action {
	var out []Action
	for _, o := range r.Outputs {
		if batch, ok := o.Body.(ActionBatch); ok {
			out = append(out, batch...)
		}
	}
	return out
}
