package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionKind is the single thing an Action asks the character to do.
type ActionKind interface {
	actionKey() string
}

type WalkAction struct {
	Location Vector2 `json:"location"`
}

type PickUpEntity struct {
	TargetEntityID EntityID `json:"targetEntityId"`
}

type UseEquippedToolItemOnEntity struct {
	TargetEntityID EntityID `json:"targetEntityId"`
}

type UseEquippedToolItem struct{}

type DropInventoryItem struct {
	ItemConfigKey string `json:"itemConfigKey"`
	StackIndex    *int   `json:"stackIndex,omitempty"`
	Amount        *int   `json:"amount,omitempty"`
}

type EquipInventoryItem struct {
	ItemConfigKey string `json:"itemConfigKey"`
	StackIndex    *int   `json:"stackIndex,omitempty"`
}

type CraftItem struct {
	ItemConfigKey string `json:"itemConfigKey"`
}

// Speak says the text out loud.
type Speak string

// RecordThought stores the text as an internal thought.
type RecordThought string

func (WalkAction) actionKey() string                  { return "walk" }
func (PickUpEntity) actionKey() string                { return "pickUpEntity" }
func (UseEquippedToolItemOnEntity) actionKey() string { return "useEquippedToolItemOnEntity" }
func (UseEquippedToolItem) actionKey() string         { return "useEquippedToolItem" }
func (DropInventoryItem) actionKey() string           { return "dropInventoryItem" }
func (EquipInventoryItem) actionKey() string          { return "equipInventoryItem" }
func (CraftItem) actionKey() string                   { return "craftItem" }
func (Speak) actionKey() string                       { return "speak" }
func (RecordThought) actionKey() string               { return "recordThought" }

// ActionFields lists the wire keys of the action variants.
var ActionFields = []string{
	"walk",
	"pickUpEntity",
	"useEquippedToolItemOnEntity",
	"useEquippedToolItem",
	"dropInventoryItem",
	"equipInventoryItem",
	"craftItem",
	"speak",
	"recordThought",
}

// Action is one decision. Kind must be set; Reason and
// FacialExpressionEmoji apply to every kind.
type Action struct {
	ActionUniqueID        string
	Reason                string
	FacialExpressionEmoji string
	Kind                  ActionKind
}

// VariantKey is the wire key of the populated kind, or "" when unset.
func (a Action) VariantKey() string {
	if a.Kind == nil {
		return ""
	}
	return a.Kind.actionKey()
}

type actionWire struct {
	ActionUniqueID              string                       `json:"actionUniqueId"`
	Reason                      string                       `json:"reason,omitempty"`
	Walk                        *WalkAction                  `json:"walk,omitempty"`
	PickUpEntity                *PickUpEntity                `json:"pickUpEntity,omitempty"`
	UseEquippedToolItemOnEntity *UseEquippedToolItemOnEntity `json:"useEquippedToolItemOnEntity,omitempty"`
	UseEquippedToolItem         *UseEquippedToolItem         `json:"useEquippedToolItem,omitempty"`
	DropInventoryItem           *DropInventoryItem           `json:"dropInventoryItem,omitempty"`
	EquipInventoryItem          *EquipInventoryItem          `json:"equipInventoryItem,omitempty"`
	CraftItem                   *CraftItem                   `json:"craftItem,omitempty"`
	Speak                       *string                      `json:"speak,omitempty"`
	FacialExpressionEmoji       string                       `json:"facialExpressionEmoji,omitempty"`
	RecordThought               *string                      `json:"recordThought,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	w := actionWire{
		ActionUniqueID:        a.ActionUniqueID,
		Reason:                a.Reason,
		FacialExpressionEmoji: a.FacialExpressionEmoji,
	}
	switch k := a.Kind.(type) {
	case nil:
		return nil, &VariantError{Type: "Action"}
	case WalkAction:
		w.Walk = &k
	case PickUpEntity:
		w.PickUpEntity = &k
	case UseEquippedToolItemOnEntity:
		w.UseEquippedToolItemOnEntity = &k
	case UseEquippedToolItem:
		w.UseEquippedToolItem = &k
	case DropInventoryItem:
		w.DropInventoryItem = &k
	case EquipInventoryItem:
		w.EquipInventoryItem = &k
	case CraftItem:
		w.CraftItem = &k
	case Speak:
		s := string(k)
		w.Speak = &s
	case RecordThought:
		s := string(k)
		w.RecordThought = &s
	default:
		return nil, fmt.Errorf("Action: unsupported kind %T", a.Kind)
	}
	return json.Marshal(w)
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var w actionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var set []string
	var kind ActionKind
	pick := func(key string, k ActionKind) {
		set = append(set, key)
		kind = k
	}
	if w.Walk != nil {
		pick("walk", *w.Walk)
	}
	if w.PickUpEntity != nil {
		pick("pickUpEntity", *w.PickUpEntity)
	}
	if w.UseEquippedToolItemOnEntity != nil {
		pick("useEquippedToolItemOnEntity", *w.UseEquippedToolItemOnEntity)
	}
	if w.UseEquippedToolItem != nil {
		pick("useEquippedToolItem", *w.UseEquippedToolItem)
	}
	if w.DropInventoryItem != nil {
		pick("dropInventoryItem", *w.DropInventoryItem)
	}
	if w.EquipInventoryItem != nil {
		pick("equipInventoryItem", *w.EquipInventoryItem)
	}
	if w.CraftItem != nil {
		pick("craftItem", *w.CraftItem)
	}
	if w.Speak != nil {
		pick("speak", Speak(*w.Speak))
	}
	if w.RecordThought != nil {
		pick("recordThought", RecordThought(*w.RecordThought))
	}
	if len(set) != 1 {
		return &VariantError{Type: "Action", Fields: set}
	}
	*a = Action{
		ActionUniqueID:        w.ActionUniqueID,
		Reason:                w.Reason,
		FacialExpressionEmoji: w.FacialExpressionEmoji,
		Kind:                  kind,
	}
	return nil
}
