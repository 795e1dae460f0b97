package types

import "time"

// Phase is the lifecycle state of a session. Transitions only move forward:
// waiting -> active -> finished.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// ZoneType is the kind of capture zone.
type ZoneType string

const (
	ZoneTypeCastle ZoneType = "castle"
	ZoneTypeFort   ZoneType = "fort"
)

// Coordinate is a geographic position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Zone is a fixed circular capture zone. Owner is the empty string while
// the zone is neutral. Troops is the garrison stationed on the zone, as
// opposed to troops carried by a player.
type Zone struct {
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Radius float64  `json:"radius"`
	Owner  string   `json:"owner,omitempty"`
	Troops int      `json:"troops"`
	Type   ZoneType `json:"type"`
}

// Session is one match instance. The Geolocations, Scores and Troops maps
// are keyed by player id and their key sets always equal Members.
type Session struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Members      []string              `json:"members"`
	Geolocations map[string]Coordinate `json:"geolocations"`
	Scores       map[string]int        `json:"scores"`
	Troops       map[string]int        `json:"troops"`
	Zones        []Zone                `json:"zones"`
	Winner       string                `json:"winner,omitempty"`
	Phase        Phase                 `json:"phase"`
	StartedAt    *time.Time            `json:"startedAt,omitempty"`
}

// IsMember reports whether the player is currently in the session.
func (s *Session) IsMember(playerID string) bool {
	for _, id := range s.Members {
		if id == playerID {
			return true
		}
	}
	return false
}

// Finished reports whether the session reached its terminal phase.
func (s *Session) Finished() bool {
	return s.Phase == PhaseFinished
}

// Full reports whether the session has reached the member limit.
func (s *Session) Full(maxMembers int) bool {
	return len(s.Members) >= maxMembers
}

// Clone returns a deep copy of the session. The runner mutates clones and
// only installs them after a successful save, so snapshots handed out to
// callers never alias live state.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:           s.ID,
		Name:         s.Name,
		Members:      make([]string, len(s.Members)),
		Geolocations: make(map[string]Coordinate, len(s.Geolocations)),
		Scores:       make(map[string]int, len(s.Scores)),
		Troops:       make(map[string]int, len(s.Troops)),
		Zones:        make([]Zone, len(s.Zones)),
		Winner:       s.Winner,
		Phase:        s.Phase,
	}
	copy(clone.Members, s.Members)
	copy(clone.Zones, s.Zones)
	for id, loc := range s.Geolocations {
		clone.Geolocations[id] = loc
	}
	for id, score := range s.Scores {
		clone.Scores[id] = score
	}
	for id, troops := range s.Troops {
		clone.Troops[id] = troops
	}
	if s.StartedAt != nil {
		startedAt := *s.StartedAt
		clone.StartedAt = &startedAt
	}
	return clone
}
