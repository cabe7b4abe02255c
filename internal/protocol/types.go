package protocol

import "encoding/json"

// Opaque identifiers; equality is the only operation they support.
type (
	EntityID     = string
	AgentID      = string
	SimulationID = string
)

// Vector2 is a world location. It is never checked against world bounds here.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GameConstants are passed through unmodified.
type GameConstants struct {
	DistanceUnit string  `json:"distanceUnit"`
	PeopleSize   float64 `json:"peopleSize"`
}

type ItemCollectionEntry struct {
	ItemConfigKey string `json:"itemConfigKey"`
	Amount        int    `json:"amount"`
}

// ItemCollection entries may repeat an itemConfigKey; amounts are additive.
type ItemCollection struct {
	Entries []ItemCollectionEntry `json:"entries"`
}

// Amount sums every entry for key.
func (c ItemCollection) Amount(key string) int {
	n := 0
	for _, e := range c.Entries {
		if e.ItemConfigKey == key {
			n += e.Amount
		}
	}
	return n
}

func (c ItemCollection) MarshalJSON() ([]byte, error) {
	type wire ItemCollection
	w := wire(c)
	w.Entries = nonNil(w.Entries)
	return json.Marshal(w)
}

// nonNil keeps required lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
