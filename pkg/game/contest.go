package game

import (
	"github.com/cbodonnell/skirmish/pkg/config"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/geo"
)

// ContestEngine decides per sweep whether zone ownership changes based on
// player proximity and troop counts.
type ContestEngine struct {
	rules config.Rules
}

func NewContestEngine(rules config.Rules) *ContestEngine {
	return &ContestEngine{
		rules: rules,
	}
}

// Sweep runs one contention pass over every zone and reports whether any
// zone's owner or garrison changed.
func (e *ContestEngine) Sweep(session *gametypes.Session) bool {
	changed := false
	for i := range session.Zones {
		if e.contestZone(session, &session.Zones[i]) {
			changed = true
		}
	}
	return changed
}

func (e *ContestEngine) contestZone(session *gametypes.Session, zone *gametypes.Zone) bool {
	inRange := playersInRange(session, zone)

	if zone.Owner == "" {
		// two players standing in the same neutral zone cancel each other
		// out; first-detected-wins would make the result depend on
		// iteration order
		if len(inRange) != 1 {
			return false
		}
		zone.Owner = inRange[0]
		zone.Troops = e.rules.InitialZoneTroops
		return true
	}

	changed := false
	for _, attacker := range inRange {
		if attacker == zone.Owner {
			continue
		}
		if e.attack(session, zone, attacker) {
			changed = true
		}
	}
	return changed
}

// attack applies one tick of symmetric attrition between the attacker's
// carried troops and the zone's garrison. When the garrison would go
// negative the zone flips: the attacker pays only what the final blow
// needed and the garrison restarts at zero.
func (e *ContestEngine) attack(session *gametypes.Session, zone *gametypes.Zone, attacker string) bool {
	spend := e.rules.TroopsAttackingPerTick
	if carried := session.Troops[attacker]; carried < spend {
		spend = carried
	}
	if spend <= 0 {
		// an attacker with no troops cannot wear the garrison down
		return false
	}

	if spend > zone.Troops {
		session.Troops[attacker] -= zone.Troops
		zone.Troops = 0
		zone.Owner = attacker
		return true
	}

	session.Troops[attacker] -= spend
	zone.Troops -= spend
	return true
}

// playersInRange returns the members standing inside the zone's capture
// radius, in member order.
func playersInRange(session *gametypes.Session, zone *gametypes.Zone) []string {
	var inRange []string
	for _, playerID := range session.Members {
		loc, ok := session.Geolocations[playerID]
		if !ok {
			continue
		}
		if geo.DistanceMeters(loc.Lat, loc.Lon, zone.Lat, zone.Lon) < zone.Radius {
			inRange = append(inRange, playerID)
		}
	}
	return inRange
}
