package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionType is the kind of action a character performed, as narrated in
// the activity stream.
type ActionType string

const (
	ActionUseToolToDamageEntity ActionType = "UseToolToDamageEntity"
	ActionUseToolToKillEntity   ActionType = "UseToolToKillEntity"
	ActionPlaceGrowableInGrower ActionType = "PlaceGrowableInGrower"
	ActionDropItem              ActionType = "DropItem"
	ActionPickUpItem            ActionType = "PickUpItem"
	ActionUseEquippedTool       ActionType = "UseEquippedTool"
	ActionEquipItem             ActionType = "EquipItem"
	ActionUnequipItem           ActionType = "UnequipItem"
	ActionSpeak                 ActionType = "Speak"
	ActionThought               ActionType = "Thought"
	ActionCraft                 ActionType = "Craft"
)

var ActionTypes = []ActionType{
	ActionUseToolToDamageEntity,
	ActionUseToolToKillEntity,
	ActionPlaceGrowableInGrower,
	ActionDropItem,
	ActionPickUpItem,
	ActionUseEquippedTool,
	ActionEquipItem,
	ActionUnequipItem,
	ActionSpeak,
	ActionThought,
	ActionCraft,
}

func (t ActionType) Valid() bool {
	switch t {
	case ActionUseToolToDamageEntity,
		ActionUseToolToKillEntity,
		ActionPlaceGrowableInGrower,
		ActionDropItem,
		ActionPickUpItem,
		ActionUseEquippedTool,
		ActionEquipItem,
		ActionUnequipItem,
		ActionSpeak,
		ActionThought,
		ActionCraft:
		return true
	}
	return false
}

func (t *ActionType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "ActionType", (*string)(t), func(s string) bool { return ActionType(s).Valid() })
}

// ActionResultType is the outcome an attempted action resolved to.
type ActionResultType string

const (
	ResultSuccess                 ActionResultType = "Success"
	ResultFailed                  ActionResultType = "Failed"
	ResultNoValidAction           ActionResultType = "NoValidAction"
	ResultTargetNotAnItem         ActionResultType = "TargetNotAnItem"
	ResultUnexpectedItemInStack   ActionResultType = "UnexpectedItemInStack"
	ResultUnexpectedEquippedItem  ActionResultType = "UnexpectedEquippedItem"
	ResultStillTooFarAfterMoving  ActionResultType = "StillTooFarAfterMoving"
	ResultFailedToMoveForAction   ActionResultType = "FailedToMoveForAction"
	ResultTargetNoLongerExists    ActionResultType = "TargetNoLongerExists"
	ResultInvalidTargetEntityID   ActionResultType = "InvalidTargetEntityId"
	ResultTargetAlreadyDead       ActionResultType = "TargetAlreadyDead"
	ResultNoToolItemEquipped      ActionResultType = "NoToolItemEquipped"
	ResultBusy                    ActionResultType = "Busy"
	ResultObstructed              ActionResultType = "Obstructed"
	ResultNoActionForEquippedTool ActionResultType = "NoActionForEquippedTool"
	ResultItemNotInInventory      ActionResultType = "ItemNotInInventory"
	ResultUnexpectedAutoAction    ActionResultType = "UnexpectedAutoAction"
)

var ActionResultTypes = []ActionResultType{
	ResultSuccess,
	ResultFailed,
	ResultNoValidAction,
	ResultTargetNotAnItem,
	ResultUnexpectedItemInStack,
	ResultUnexpectedEquippedItem,
	ResultStillTooFarAfterMoving,
	ResultFailedToMoveForAction,
	ResultTargetNoLongerExists,
	ResultInvalidTargetEntityID,
	ResultTargetAlreadyDead,
	ResultNoToolItemEquipped,
	ResultBusy,
	ResultObstructed,
	ResultNoActionForEquippedTool,
	ResultItemNotInInventory,
	ResultUnexpectedAutoAction,
}

func (t ActionResultType) Valid() bool {
	switch t {
	case ResultSuccess,
		ResultFailed,
		ResultNoValidAction,
		ResultTargetNotAnItem,
		ResultUnexpectedItemInStack,
		ResultUnexpectedEquippedItem,
		ResultStillTooFarAfterMoving,
		ResultFailedToMoveForAction,
		ResultTargetNoLongerExists,
		ResultInvalidTargetEntityID,
		ResultTargetAlreadyDead,
		ResultNoToolItemEquipped,
		ResultBusy,
		ResultObstructed,
		ResultNoActionForEquippedTool,
		ResultItemNotInInventory,
		ResultUnexpectedAutoAction:
		return true
	}
	return false
}

func (t *ActionResultType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "ActionResultType", (*string)(t), func(s string) bool { return ActionResultType(s).Valid() })
}

// AgentStatus labels the agent's decision process lifecycle.
type AgentStatus string

const (
	StatusIdle           AgentStatus = "Idle"
	StatusUpdatingMemory AgentStatus = "UpdatingMemory"
	StatusRunning        AgentStatus = "Running"
	StatusError          AgentStatus = "Error"
	StatusRateLimited    AgentStatus = "RateLimited"
)

var AgentStatuses = []AgentStatus{
	StatusIdle,
	StatusUpdatingMemory,
	StatusRunning,
	StatusError,
	StatusRateLimited,
}

func (s AgentStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusUpdatingMemory, StatusRunning, StatusError, StatusRateLimited:
		return true
	}
	return false
}

func (s *AgentStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "AgentStatus", (*string)(s), func(v string) bool { return AgentStatus(v).Valid() })
}

// unmarshalEnum accepts null as the zero value (absent).
func unmarshalEnum(b []byte, name string, dst *string, valid func(string) bool) error {
	if string(b) == "null" {
		*dst = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !valid(s) {
		return fmt.Errorf("%s: unknown value %q", name, s)
	}
	*dst = s
	return nil
}
