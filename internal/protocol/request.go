package protocol

import "encoding/json"

type ItemStackInfo struct {
	Amount                  int    `json:"amount"`
	ItemConfigKey           string `json:"itemConfigKey"`
	ItemName                string `json:"itemName"`
	ItemDescription         string `json:"itemDescription"`
	CanBeEquipped           bool   `json:"canBeEquipped"`
	CanBeDropped            bool   `json:"canBeDropped"`
	IsEquipped              bool   `json:"isEquipped"`
	SpawnItemOnUseConfigKey string `json:"spawnItemOnUseConfigKey,omitempty"`
}

type ItemStackInfoWrapper struct {
	ItemStackInfo          ItemStackInfo `json:"itemStackInfo"`
	SerializedAsJavaScript string        `json:"serializedAsJavaScript"`
	JavaScriptVariableName string        `json:"javaScriptVariableName"`
}

type InventoryInfo struct {
	ItemStacks []ItemStackInfoWrapper `json:"itemStacks"`
}

func (i InventoryInfo) MarshalJSON() ([]byte, error) {
	type wire InventoryInfo
	w := wire(i)
	w.ItemStacks = nonNil(w.ItemStacks)
	return json.Marshal(w)
}

// SelfInfo is the agent's own state. EntityInfoWrapper.EntityInfo.EntityID
// is the id the agent is known by in the simulation.
type SelfInfo struct {
	EntityInfoWrapper     EntityInfoWrapper `json:"entityInfoWrapper"`
	CorePersonality       string            `json:"corePersonality"`
	InitialMemories       []string          `json:"initialMemories"`
	ObservationRadius     float64           `json:"observationRadius"`
	InventoryInfo         InventoryInfo     `json:"inventoryInfo"`
	EquippedItemConfigKey string            `json:"equippedItemConfigKey,omitempty"`
}

func (s SelfInfo) MarshalJSON() ([]byte, error) {
	type wire SelfInfo
	w := wire(s)
	w.InitialMemories = nonNil(w.InitialMemories)
	return json.Marshal(w)
}

type CraftingRecipeInfo struct {
	ItemConfigKey      string         `json:"itemConfigKey"`
	ItemName           string         `json:"itemName"`
	Description        string         `json:"description"`
	Cost               ItemCollection `json:"cost"`
	Amount             int            `json:"amount"`
	CanCurrentlyAfford bool           `json:"canCurrentlyAfford"`
}

type CraftingRecipeInfoWrapper struct {
	CraftingRecipeInfo     CraftingRecipeInfo `json:"craftingRecipeInfo"`
	SerializedAsJavaScript string             `json:"serializedAsJavaScript"`
	JavaScriptVariableName string             `json:"javaScriptVariableName"`
}

// GameSimulationInfo is refreshed on every sync; it is never diffed.
type GameSimulationInfo struct {
	WorldBounds                Vector2                     `json:"worldBounds"`
	CraftingRecipeInfoWrappers []CraftingRecipeInfoWrapper `json:"craftingRecipeInfoWrappers"`
}

func (g GameSimulationInfo) MarshalJSON() ([]byte, error) {
	type wire GameSimulationInfo
	w := wire(g)
	w.CraftingRecipeInfoWrappers = nonNil(w.CraftingRecipeInfoWrappers)
	return json.Marshal(w)
}

// AgentSyncInput is one tick's worth of observations for one agent.
type AgentSyncInput struct {
	AgentType                      string             `json:"agentType"`
	SyncID                         string             `json:"syncId"`
	AgentID                        AgentID            `json:"agentId"`
	SimulationID                   SimulationID       `json:"simulationId"`
	SimulationTime                 float64            `json:"simulationTime"`
	SelfInfo                       SelfInfo           `json:"selfInfo"`
	NewObservations                Observations       `json:"newObservations"`
	GameConstants                  GameConstants      `json:"gameConstants"`
	GameSimulationInfo             GameSimulationInfo `json:"gameSimulationInfo"`
	AgentTypeScriptInterfaceString string             `json:"agentTypeScriptInterfaceString"`
	MostRecentCompletedScriptID    string             `json:"mostRecentCompletedScriptId,omitempty"`
}

// SelfEntityID is the entity the agent controls.
func (in AgentSyncInput) SelfEntityID() EntityID {
	return in.SelfInfo.EntityInfoWrapper.EntityInfo.EntityID
}

type AgentSyncRequest struct {
	Input AgentSyncInput `json:"input"`
}
