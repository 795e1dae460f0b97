package game

import (
	"fmt"
	"math"
	"time"

	"github.com/cbodonnell/skirmish/pkg/config"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/geo"
)

// generateZones lays the capture zones out evenly on a ring around the
// creation point. The first zone is the castle, the rest are forts.
func generateZones(center gametypes.Coordinate, rules config.Rules) []gametypes.Zone {
	zones := make([]gametypes.Zone, 0, rules.ZoneCount)
	for i := 0; i < rules.ZoneCount; i++ {
		angle := 2 * math.Pi * float64(i) / float64(rules.ZoneCount)
		lat, lon := geo.Offset(center.Lat, center.Lon,
			rules.ZoneRingMeters*math.Cos(angle),
			rules.ZoneRingMeters*math.Sin(angle))
		zoneType := gametypes.ZoneTypeFort
		if i == 0 {
			zoneType = gametypes.ZoneTypeCastle
		}
		zones = append(zones, gametypes.Zone{
			Lat:    lat,
			Lon:    lon,
			Radius: rules.ZoneRadiusMeters,
			Type:   zoneType,
		})
	}
	return zones
}

func validateCoordinate(loc gametypes.Coordinate) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
		return &ValidationError{Reason: fmt.Sprintf("invalid coordinate (%f, %f)", loc.Lat, loc.Lon)}
	}
	return nil
}

// addMember adds the player with starting troops and a zeroed score. When
// the session fills up it transitions to active, which the runner uses to
// arm its tick loop and duration timer.
func addMember(session *gametypes.Session, playerID string, loc gametypes.Coordinate, rules config.Rules) error {
	if session.Finished() {
		return &StateError{Reason: fmt.Sprintf("session %q is finished", session.Name)}
	}
	if session.IsMember(playerID) {
		return &ConflictError{Reason: fmt.Sprintf("player %q is already in session %q", playerID, session.Name)}
	}
	if session.Full(rules.MaxMembers) {
		return &ConflictError{Reason: fmt.Sprintf("session %q already has max members", session.Name)}
	}

	session.Members = append(session.Members, playerID)
	session.Geolocations[playerID] = loc
	session.Scores[playerID] = 0
	session.Troops[playerID] = rules.InitialPlayerTroops

	if session.Full(rules.MaxMembers) {
		now := time.Now()
		session.StartedAt = &now
		session.Phase = gametypes.PhaseActive
	}
	return nil
}

// removeMember removes the player and every per-player entry keyed by it.
// Zone ownership is deliberately left alone: a zone may keep referencing a
// departed owner, it just stops accruing for anyone.
func removeMember(session *gametypes.Session, playerID string) error {
	if session.Finished() {
		return &StateError{Reason: fmt.Sprintf("session %q is finished", session.Name)}
	}
	if !session.IsMember(playerID) {
		return &NotFoundError{Resource: "player", Key: playerID}
	}

	members := make([]string, 0, len(session.Members)-1)
	for _, id := range session.Members {
		if id != playerID {
			members = append(members, id)
		}
	}
	session.Members = members
	delete(session.Geolocations, playerID)
	delete(session.Scores, playerID)
	delete(session.Troops, playerID)
	return nil
}

// updateGeolocation records the player's latest reported position.
func updateGeolocation(session *gametypes.Session, playerID string, loc gametypes.Coordinate) error {
	if session.Finished() {
		return &StateError{Reason: fmt.Sprintf("session %q is finished", session.Name)}
	}
	if !session.IsMember(playerID) {
		return &NotFoundError{Resource: "player", Key: playerID}
	}
	session.Geolocations[playerID] = loc
	return nil
}

// transferTroops moves troops between the player and a zone's garrison.
// Positive amounts move troops into the garrison, negative amounts pull
// them out. Transfers are best-effort: amounts exceeding what is available
// are clamped, never rejected.
func transferTroops(session *gametypes.Session, playerID string, zoneIndex int, amount int) error {
	if session.Finished() {
		return &StateError{Reason: fmt.Sprintf("session %q is finished", session.Name)}
	}
	if !session.IsMember(playerID) {
		return &NotFoundError{Resource: "player", Key: playerID}
	}
	if zoneIndex < 0 || zoneIndex >= len(session.Zones) {
		return &ValidationError{Reason: fmt.Sprintf("zone index %d out of range", zoneIndex)}
	}

	zone := &session.Zones[zoneIndex]
	if zone.Owner != playerID {
		return &StateError{Reason: fmt.Sprintf("player %q does not own zone %d", playerID, zoneIndex)}
	}
	loc := session.Geolocations[playerID]
	if geo.DistanceMeters(loc.Lat, loc.Lon, zone.Lat, zone.Lon) >= zone.Radius {
		return &StateError{Reason: fmt.Sprintf("player %q is not in range of zone %d", playerID, zoneIndex)}
	}

	if amount > 0 {
		if carried := session.Troops[playerID]; amount > carried {
			amount = carried
		}
		session.Troops[playerID] -= amount
		zone.Troops += amount
	} else {
		withdraw := -amount
		if withdraw > zone.Troops {
			withdraw = zone.Troops
		}
		zone.Troops -= withdraw
		session.Troops[playerID] += withdraw
	}
	return nil
}
