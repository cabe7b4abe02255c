package protocol

import (
	"encoding/json"
	"fmt"
)

type ItemInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ItemConfigKey string `json:"itemConfigKey"`
}

// EntityCapability is the behavioral role an observed entity exhibits.
// Implemented by ItemEntityInfo, DamageableEntityInfo, CharacterEntityInfo
// and GrowerEntityInfo.
type EntityCapability interface {
	capabilityKey() string
}

type ItemEntityInfo struct {
	ItemConfigKey string `json:"itemConfigKey"`
	ItemName      string `json:"itemName"`
	Description   string `json:"description"`
	CanBePickedUp bool   `json:"canBePickedUp"`
	Amount        int    `json:"amount"`
}

type DamageableEntityInfo struct {
	DamageableByEquippedToolItemConfigKey string `json:"damageableByEquippedToolItemConfigKey,omitempty"`
	HP                                    int    `json:"hp"`
}

type CharacterEntityInfo struct {
	Name             string    `json:"name"`
	Gender           string    `json:"gender"`
	SkinColor        string    `json:"skinColor"`
	Age              int       `json:"age"`
	Description      string    `json:"description"`
	EquippedItemInfo *ItemInfo `json:"equippedItemInfo,omitempty"`
	HairColor        string    `json:"hairColor,omitempty"`
	HairStyle        string    `json:"hairStyle,omitempty"`
}

type ActiveGrowthInfo struct {
	GrowableItemConfigKey    string  `json:"growableItemConfigKey"`
	GrowingIntoItemConfigKey string  `json:"growingIntoItemConfigKey"`
	StartTime                float64 `json:"startTime"`
	Duration                 float64 `json:"duration"`
}

type GrowerEntityInfo struct {
	ActiveGrowthInfo                 *ActiveGrowthInfo `json:"activeGrowthInfo,omitempty"`
	CanReceiveGrowableItemConfigKeys []string          `json:"canReceiveGrowableItemConfigKeys"`
}

func (g GrowerEntityInfo) MarshalJSON() ([]byte, error) {
	type wire GrowerEntityInfo
	w := wire(g)
	w.CanReceiveGrowableItemConfigKeys = nonNil(w.CanReceiveGrowableItemConfigKeys)
	return json.Marshal(w)
}

func (ItemEntityInfo) capabilityKey() string       { return "itemInfo" }
func (DamageableEntityInfo) capabilityKey() string { return "damageableInfo" }
func (CharacterEntityInfo) capabilityKey() string  { return "characterInfo" }
func (GrowerEntityInfo) capabilityKey() string     { return "growerInfo" }

// EntityCapabilityFields lists the wire keys of the capability variants.
var EntityCapabilityFields = []string{"itemInfo", "damageableInfo", "characterInfo", "growerInfo"}

// EntityInfo is a snapshot of one world entity at a simulation time.
// Capability is nil for entities with no special role.
type EntityInfo struct {
	ObservedAtSimulationTime float64
	EntityID                 EntityID
	Location                 Vector2
	Capability               EntityCapability
	IsStale                  bool
	IsVisible                bool
}

type entityInfoWire struct {
	ObservedAtSimulationTime float64               `json:"observedAtSimulationTime"`
	EntityID                 EntityID              `json:"entityId"`
	Location                 Vector2               `json:"location"`
	ItemInfo                 *ItemEntityInfo       `json:"itemInfo,omitempty"`
	DamageableInfo           *DamageableEntityInfo `json:"damageableInfo,omitempty"`
	CharacterInfo            *CharacterEntityInfo  `json:"characterInfo,omitempty"`
	GrowerInfo               *GrowerEntityInfo     `json:"growerInfo,omitempty"`
	IsStale                  bool                  `json:"isStale"`
	IsVisible                bool                  `json:"isVisible"`
}

func (e EntityInfo) MarshalJSON() ([]byte, error) {
	w := entityInfoWire{
		ObservedAtSimulationTime: e.ObservedAtSimulationTime,
		EntityID:                 e.EntityID,
		Location:                 e.Location,
		IsStale:                  e.IsStale,
		IsVisible:                e.IsVisible,
	}
	switch c := e.Capability.(type) {
	case nil:
	case ItemEntityInfo:
		w.ItemInfo = &c
	case *ItemEntityInfo:
		w.ItemInfo = c
	case DamageableEntityInfo:
		w.DamageableInfo = &c
	case *DamageableEntityInfo:
		w.DamageableInfo = c
	case CharacterEntityInfo:
		w.CharacterInfo = &c
	case *CharacterEntityInfo:
		w.CharacterInfo = c
	case GrowerEntityInfo:
		w.GrowerInfo = &c
	case *GrowerEntityInfo:
		w.GrowerInfo = c
	default:
		return nil, fmt.Errorf("EntityInfo: unsupported capability %T", e.Capability)
	}
	return json.Marshal(w)
}

func (e *EntityInfo) UnmarshalJSON(b []byte) error {
	var w entityInfoWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var set []string
	var capability EntityCapability
	if w.ItemInfo != nil {
		set = append(set, "itemInfo")
		capability = *w.ItemInfo
	}
	if w.DamageableInfo != nil {
		set = append(set, "damageableInfo")
		capability = *w.DamageableInfo
	}
	if w.CharacterInfo != nil {
		set = append(set, "characterInfo")
		capability = *w.CharacterInfo
	}
	if w.GrowerInfo != nil {
		set = append(set, "growerInfo")
		capability = *w.GrowerInfo
	}
	if len(set) > 1 {
		return &VariantError{Type: "EntityInfo", Fields: set}
	}
	*e = EntityInfo{
		ObservedAtSimulationTime: w.ObservedAtSimulationTime,
		EntityID:                 w.EntityID,
		Location:                 w.Location,
		Capability:               capability,
		IsStale:                  w.IsStale,
		IsVisible:                w.IsVisible,
	}
	return nil
}

// ItemInfo returns the item capability, if the entity is an item.
func (e EntityInfo) ItemInfo() (ItemEntityInfo, bool) {
	switch c := e.Capability.(type) {
	case ItemEntityInfo:
		return c, true
	case *ItemEntityInfo:
		return *c, c != nil
	}
	return ItemEntityInfo{}, false
}

// CharacterInfo returns the character capability, if the entity is a character.
func (e EntityInfo) CharacterInfo() (CharacterEntityInfo, bool) {
	switch c := e.Capability.(type) {
	case CharacterEntityInfo:
		return c, true
	case *CharacterEntityInfo:
		return *c, c != nil
	}
	return CharacterEntityInfo{}, false
}

type EntityInfoWrapper struct {
	EntityInfo             EntityInfo `json:"entityInfo"`
	SerializedAsJavaScript string     `json:"serializedAsJavaScript"`
	JavaScriptVariableName string     `json:"javaScriptVariableName"`
}
