package decision

import (
	"context"

	"github.com/google/uuid"

	"botfarm.ai/internal/protocol"
)

const (
	DefaultScript    = `speak("Hello from Go via JavaScript!")`
	DefaultSpeakText = "Hello from Go!"
)

// ScriptDecider answers every sync with one script for the simulation to
// run. A mostRecentCompletedScriptId it never issued is ignored.
type ScriptDecider struct {
	Script string
	// NewScriptID defaults to uuid.
	NewScriptID func() string
}

func (d ScriptDecider) Decide(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	script := d.Script
	if script == "" {
		script = DefaultScript
	}
	newID := d.NewScriptID
	if newID == nil {
		newID = uuid.NewString
	}
	return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
		{Body: protocol.ScriptToRun{ScriptID: newID(), Script: script}},
	}}, nil
}

// SpeakDecider answers every sync with a single speak action. The action id
// is left empty for the sync service to fill.
type SpeakDecider struct {
	Text string
}

func (d SpeakDecider) Decide(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	text := d.Text
	if text == "" {
		text = DefaultSpeakText
	}
	return protocol.AgentSyncResponse{Outputs: []protocol.AgentSyncOutput{
		{Body: protocol.ActionBatch{{Kind: protocol.Speak(text)}}},
	}}, nil
}

// NewReference builds the registry served by default: scriptTypes get the
// script decider and everything else speaks.
func NewReference(scriptTypes []string, script, speakText string) (*Registry, error) {
	r := NewRegistry(SpeakDecider{Text: speakText})
	if len(scriptTypes) == 0 {
		scriptTypes = []string{protocol.AgentTypeScript}
	}
	for _, t := range scriptTypes {
		if err := r.Register(t, ScriptDecider{Script: script}); err != nil {
			return nil, err
		}
	}
	return r, nil
}
