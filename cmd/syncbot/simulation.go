package main

import (
	"time"

	"botfarm.ai/internal/protocol"
)

// simulation is a one-character world that plays back the agent's actions
// as observations on the following tick.
type simulation struct {
	agentType string
	agentID   protocol.AgentID
	simID     protocol.SimulationID
	selfID    protocol.EntityID

	now      float64
	location protocol.Vector2
	first    bool

	pending       protocol.Observations
	pendingScript string
}

func newSimulation(agentType string, agentID protocol.AgentID, simID protocol.SimulationID) *simulation {
	return &simulation{
		agentType: agentType,
		agentID:   agentID,
		simID:     simID,
		selfID:    "character-" + agentID,
		first:     true,
	}
}

func (s *simulation) self() protocol.EntityInfo {
	return protocol.EntityInfo{
		ObservedAtSimulationTime: s.now,
		EntityID:                 s.selfID,
		Location:                 s.location,
		Capability:               protocol.CharacterEntityInfo{Name: s.agentID, Description: "a test character"},
		IsVisible:                true,
	}
}

// next advances the clock by dt and returns the request for this tick.
func (s *simulation) next(dt time.Duration) protocol.AgentSyncRequest {
	if !s.first {
		s.now += dt.Seconds()
	}
	obs := s.pending
	if s.first {
		obs.EntityObservationEvents = append(obs.EntityObservationEvents, protocol.EntityObservationEvent{
			Kind: protocol.ObservedNewEntity{EntityInfoWrapper: protocol.EntityInfoWrapper{EntityInfo: s.self()}},
		})
		s.first = false
	}
	req := protocol.AgentSyncRequest{Input: protocol.AgentSyncInput{
		AgentType:      s.agentType,
		AgentID:        s.agentID,
		SimulationID:   s.simID,
		SimulationTime: s.now,
		SelfInfo: protocol.SelfInfo{
			EntityInfoWrapper: protocol.EntityInfoWrapper{EntityInfo: s.self(), JavaScriptVariableName: "self"},
			CorePersonality:   "patient and observant",
			ObservationRadius: 20,
		},
		NewObservations:             obs,
		GameConstants:               protocol.GameConstants{DistanceUnit: "meter", PeopleSize: 1},
		GameSimulationInfo:          protocol.GameSimulationInfo{WorldBounds: protocol.Vector2{X: 100, Y: 100}},
		MostRecentCompletedScriptID: s.pendingScript,
	}}
	s.pending = protocol.Observations{}
	s.pendingScript = ""
	return req
}

// apply records what the agent decided so the next tick reports it.
func (s *simulation) apply(resp protocol.AgentSyncResponse) {
	for _, o := range resp.Outputs {
		switch b := o.Body.(type) {
		case protocol.ScriptToRun:
			s.pendingScript = b.ScriptID
		case protocol.ActionBatch:
			for _, a := range b {
				s.applyAction(a)
			}
		}
	}
}

func (s *simulation) applyAction(a protocol.Action) {
	p := &s.pending
	p.StartedActionUniqueIDs = append(p.StartedActionUniqueIDs, a.ActionUniqueID)
	p.ActionResults = append(p.ActionResults, protocol.ActionResult{ActionUniqueID: a.ActionUniqueID})

	entry := protocol.ActivityStreamEntry{
		Time:                s.now,
		ShouldReportToAI:    true,
		AgentReason:         a.Reason,
		AgentUniqueActionID: a.ActionUniqueID,
		ActionResultType:    protocol.ResultSuccess,
		SourceEntityID:      s.selfID,
	}
	switch k := a.Kind.(type) {
	case protocol.WalkAction:
		p.MovementRecords = append(p.MovementRecords, protocol.MovementRecord{
			StartedAtTime: s.now,
			StartPoint:    s.location,
			EndPoint:      k.Location,
		})
		s.location = k.Location
		return
	case protocol.Speak:
		entry.Title = "Spoke"
		entry.Message = string(k)
		entry.ActionType = protocol.ActionSpeak
	case protocol.RecordThought:
		entry.Title = "Thought"
		entry.Message = string(k)
		entry.ActionType = protocol.ActionThought
		entry.OnlyShowForPerspectiveEntity = true
	default:
		entry.Title = a.VariantKey()
		entry.ActionResultType = protocol.ResultNoValidAction
	}
	p.ActivityStreamEntries = append(p.ActivityStreamEntries, entry)
}
