// Package protocoltest provides protocol fixtures for tests.
package protocoltest

import (
	"encoding/json"

	"botfarm.ai/internal/protocol"
)

// SampleRequest is a complete, schema-valid request for agentType.
func SampleRequest(agentType string) protocol.AgentSyncRequest {
	self := protocol.EntityInfo{
		ObservedAtSimulationTime: 10,
		EntityID:                 "self-1",
		Location:                 protocol.Vector2{X: 5, Y: 6},
		Capability: protocol.CharacterEntityInfo{
			Name: "Ada", Gender: "female", SkinColor: "brown", Age: 30, Description: "farmer",
		},
		IsVisible: true,
	}
	tree := protocol.EntityInfo{
		ObservedAtSimulationTime: 9,
		EntityID:                 "tree-1",
		Location:                 protocol.Vector2{X: 1, Y: 1},
		Capability:               protocol.DamageableEntityInfo{DamageableByEquippedToolItemConfigKey: "axe", HP: 3},
		IsVisible:                true,
	}
	return protocol.AgentSyncRequest{Input: protocol.AgentSyncInput{
		AgentType:      agentType,
		SyncID:         "sync-1",
		AgentID:        "agent-1",
		SimulationID:   "sim-1",
		SimulationTime: 10,
		SelfInfo: protocol.SelfInfo{
			EntityInfoWrapper: protocol.EntityInfoWrapper{EntityInfo: self, SerializedAsJavaScript: "{}", JavaScriptVariableName: "self"},
			CorePersonality:   "curious",
			InitialMemories:   []string{"I grew up here"},
			ObservationRadius: 20,
			InventoryInfo: protocol.InventoryInfo{ItemStacks: []protocol.ItemStackInfoWrapper{{
				ItemStackInfo: protocol.ItemStackInfo{Amount: 1, ItemConfigKey: "axe", ItemName: "Axe", CanBeEquipped: true, CanBeDropped: true},
			}}},
		},
		NewObservations: protocol.Observations{
			EntityObservationEvents: []protocol.EntityObservationEvent{
				{Kind: protocol.ObservedNewEntity{EntityInfoWrapper: protocol.EntityInfoWrapper{EntityInfo: tree}}},
				{Kind: protocol.ObservedEntityDestroyed{EntityID: "bush-2"}},
			},
			MovementRecords: []protocol.MovementRecord{{StartedAtTime: 8, StartPoint: protocol.Vector2{}, EndPoint: protocol.Vector2{X: 5, Y: 6}}},
			ActivityStreamEntries: []protocol.ActivityStreamEntry{{
				Time: 9, Title: "Chop", ActionType: protocol.ActionUseToolToDamageEntity,
				ActionResultType: protocol.ResultSuccess, SourceEntityID: "self-1", TargetEntityID: "tree-1",
			}},
			ActionResults:          []protocol.ActionResult{{ActionUniqueID: "a-0"}},
			StartedActionUniqueIDs: []string{"a-1"},
		},
		GameConstants: protocol.GameConstants{DistanceUnit: "meter", PeopleSize: 1.7},
		GameSimulationInfo: protocol.GameSimulationInfo{
			WorldBounds: protocol.Vector2{X: 100, Y: 100},
			CraftingRecipeInfoWrappers: []protocol.CraftingRecipeInfoWrapper{{
				CraftingRecipeInfo: protocol.CraftingRecipeInfo{
					ItemConfigKey: "bread", ItemName: "Bread", Amount: 1,
					Cost: protocol.ItemCollection{Entries: []protocol.ItemCollectionEntry{{ItemConfigKey: "wheat", Amount: 2}}},
				},
			}},
		},
		AgentTypeScriptInterfaceString: "interface Agent {}",
	}}
}

// SampleRequestJSON is SampleRequest encoded.
func SampleRequestJSON(agentType string) []byte {
	b, err := json.Marshal(SampleRequest(agentType))
	if err != nil {
		panic(err)
	}
	return b
}
