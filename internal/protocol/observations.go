package protocol

import (
	"encoding/json"
	"fmt"
)

type ObservedSpokenMessage struct {
	EntityID        EntityID `json:"entityId"`
	MessageID       string   `json:"messageId"`
	CharacterName   string   `json:"characterName"`
	Message         string   `json:"message"`
	Time            float64  `json:"time"`
	SpeakerLocation Vector2  `json:"speakerLocation"`
	MyLocation      Vector2  `json:"myLocation"`
}

type MovementRecord struct {
	StartedAtTime float64 `json:"startedAtTime"`
	EndPoint      Vector2 `json:"endPoint"`
	StartPoint    Vector2 `json:"startPoint"`
	Reason        string  `json:"reason,omitempty"`
}

type SpawnedItemEntity struct {
	Amount        int      `json:"amount"`
	ItemConfigKey string   `json:"itemConfigKey"`
	EntityID      EntityID `json:"entityId"`
}

// ActivityStreamEntry is one narrated world event. Entries flagged with
// OnlyShowForPerspectiveEntity are meant for a single agent.
type ActivityStreamEntry struct {
	Time                         float64             `json:"time"`
	Title                        string              `json:"title,omitempty"`
	Message                      string              `json:"message,omitempty"`
	LongMessage                  string              `json:"longMessage,omitempty"`
	ShouldReportToAI             bool                `json:"shouldReportToAi"`
	AgentReason                  string              `json:"agentReason,omitempty"`
	AgentUniqueActionID          string              `json:"agentUniqueActionId,omitempty"`
	ActionType                   ActionType          `json:"actionType,omitempty"`
	ActionResultType             ActionResultType    `json:"actionResultType,omitempty"`
	ActionItemConfigKey          string              `json:"actionItemConfigKey,omitempty"`
	SourceItemConfigKey          string              `json:"sourceItemConfigKey,omitempty"`
	SourceLocation               *Vector2            `json:"sourceLocation,omitempty"`
	SourceEntityID               EntityID            `json:"sourceEntityId,omitempty"`
	TargetEntityID               EntityID            `json:"targetEntityId,omitempty"`
	TargetItemConfigKey          string              `json:"targetItemConfigKey,omitempty"`
	ResultItemConfigKey          string              `json:"resultItemConfigKey,omitempty"`
	ResultEntityID               EntityID            `json:"resultEntityId,omitempty"`
	OnlyShowForPerspectiveEntity bool                `json:"onlyShowForPerspectiveEntity"`
	ObservedByEntityIDs          []EntityID          `json:"observedByEntityIds,omitempty"`
	SpawnedItems                 []SpawnedItemEntity `json:"spawnedItems,omitempty"`
}

// VisibleTo reports whether the entry should be shown to the agent
// controlling perspective.
func (e ActivityStreamEntry) VisibleTo(perspective EntityID) bool {
	if !e.OnlyShowForPerspectiveEntity {
		return true
	}
	return e.SourceEntityID == perspective || e.TargetEntityID == perspective
}

type ScriptExecutionError struct {
	Error    string `json:"error"`
	ScriptID string `json:"scriptId"`
}

type ActionResult struct {
	ActionUniqueID string `json:"actionUniqueId"`
}

// EntityObservationKind is one of ObservedNewEntity, ObservedEntityChanged
// or ObservedEntityDestroyed.
type EntityObservationKind interface {
	observationKey() string
}

type ObservedNewEntity struct {
	EntityInfoWrapper EntityInfoWrapper `json:"entityInfoWrapper"`
}

type ObservedEntityChanged struct {
	EntityInfoWrapper EntityInfoWrapper `json:"entityInfoWrapper"`
}

type ObservedEntityDestroyed struct {
	EntityID EntityID `json:"entityId"`
}

func (ObservedNewEntity) observationKey() string       { return "newEntity" }
func (ObservedEntityChanged) observationKey() string   { return "entityChanged" }
func (ObservedEntityDestroyed) observationKey() string { return "entityDestroyed" }

var EntityObservationFields = []string{"newEntity", "entityChanged", "entityDestroyed"}

// EntityObservationEvent carries exactly one observation kind.
type EntityObservationEvent struct {
	Kind EntityObservationKind
}

type entityObservationEventWire struct {
	NewEntity       *ObservedNewEntity       `json:"newEntity,omitempty"`
	EntityChanged   *ObservedEntityChanged   `json:"entityChanged,omitempty"`
	EntityDestroyed *ObservedEntityDestroyed `json:"entityDestroyed,omitempty"`
}

func (e EntityObservationEvent) MarshalJSON() ([]byte, error) {
	var w entityObservationEventWire
	switch k := e.Kind.(type) {
	case nil:
		return nil, &VariantError{Type: "EntityObservationEvent"}
	case ObservedNewEntity:
		w.NewEntity = &k
	case ObservedEntityChanged:
		w.EntityChanged = &k
	case ObservedEntityDestroyed:
		w.EntityDestroyed = &k
	default:
		return nil, fmt.Errorf("EntityObservationEvent: unsupported kind %T", e.Kind)
	}
	return json.Marshal(w)
}

func (e *EntityObservationEvent) UnmarshalJSON(b []byte) error {
	var w entityObservationEventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var set []string
	var kind EntityObservationKind
	if w.NewEntity != nil {
		set = append(set, "newEntity")
		kind = *w.NewEntity
	}
	if w.EntityChanged != nil {
		set = append(set, "entityChanged")
		kind = *w.EntityChanged
	}
	if w.EntityDestroyed != nil {
		set = append(set, "entityDestroyed")
		kind = *w.EntityDestroyed
	}
	if len(set) != 1 {
		return &VariantError{Type: "EntityObservationEvent", Fields: set}
	}
	e.Kind = kind
	return nil
}

// Observations is everything observed since the previous sync. Every list is
// in event order and that order is preserved end to end.
type Observations struct {
	EntityObservationEvents []EntityObservationEvent `json:"entityObservationEvents"`
	ScriptExecutionErrors   []ScriptExecutionError   `json:"scriptExecutionErrors"`
	MovementRecords         []MovementRecord         `json:"movementRecords"`
	ActivityStreamEntries   []ActivityStreamEntry    `json:"activityStreamEntries"`
	ActionResults           []ActionResult           `json:"actionResults"`
	StartedActionUniqueIDs  []string                 `json:"startedActionUniqueIds"`
}

func (o Observations) MarshalJSON() ([]byte, error) {
	type wire Observations
	w := wire(o)
	w.EntityObservationEvents = nonNil(w.EntityObservationEvents)
	w.ScriptExecutionErrors = nonNil(w.ScriptExecutionErrors)
	w.MovementRecords = nonNil(w.MovementRecords)
	w.ActivityStreamEntries = nonNil(w.ActivityStreamEntries)
	w.ActionResults = nonNil(w.ActionResults)
	w.StartedActionUniqueIDs = nonNil(w.StartedActionUniqueIDs)
	return json.Marshal(w)
}

// ReportedActivity returns, in order, the activity entries meant for the
// agent controlling self.
func (o Observations) ReportedActivity(self EntityID) []ActivityStreamEntry {
	var out []ActivityStreamEntry
	for _, e := range o.ActivityStreamEntries {
		if e.ShouldReportToAI && e.VisibleTo(self) {
			out = append(out, e)
		}
	}
	return out
}

func (o Observations) Empty() bool {
	return len(o.EntityObservationEvents) == 0 &&
		len(o.ScriptExecutionErrors) == 0 &&
		len(o.MovementRecords) == 0 &&
		len(o.ActivityStreamEntries) == 0 &&
		len(o.ActionResults) == 0 &&
		len(o.StartedActionUniqueIDs) == 0
}
