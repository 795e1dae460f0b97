package messages

import (
	"encoding/json"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
)

// Message types
const (
	MessageTypeRegionUpdate  = "regionUpdate"
	MessageTypeSessionUpdate = "sessionUpdate"
	MessageTypeGameOver      = "gameOver"
)

// Message represents a generic message for serialization/deserialization
type Message struct {
	SessionID string          `json:"sessionID"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// RegionUpdate is broadcast whenever a contest or scoring sweep changes any
// zone's owner or garrison. Troops carries the per-player troop counts so
// clients can render carried troops next to garrisons.
type RegionUpdate struct {
	Zones  []gametypes.Zone `json:"zones"`
	Troops map[string]int   `json:"troops"`
}

// SessionUpdate is broadcast on membership and lifecycle changes.
type SessionUpdate struct {
	Phase   gametypes.Phase `json:"phase"`
	Members []string        `json:"members"`
	Scores  map[string]int  `json:"scores"`
}

// GameOver is broadcast once, on the transition to the finished phase.
// Winner is empty when the duration timer elapsed on a tied score.
type GameOver struct {
	Winner string         `json:"winner,omitempty"`
	Scores map[string]int `json:"scores"`
}
