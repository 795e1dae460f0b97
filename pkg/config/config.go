package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Rules holds the tunable parameters of a game session. Every field can be
// overridden through the environment.
type Rules struct {
	// MaxMembers is the number of players per session. A session becomes
	// active the moment it fills up.
	MaxMembers int `env:"GAME_MAX_MEMBERS" envDefault:"2"`

	// ZoneCount is the number of capture zones laid out at creation.
	ZoneCount int `env:"GAME_ZONE_COUNT" envDefault:"5"`

	// ZoneRadiusMeters is the capture radius of each zone.
	ZoneRadiusMeters float64 `env:"GAME_ZONE_RADIUS_METERS" envDefault:"15"`

	// ZoneRingMeters is the distance from the creation point at which
	// zones are placed. Must stay well under a kilometer so the flat-earth
	// offset approximation holds.
	ZoneRingMeters float64 `env:"GAME_ZONE_RING_METERS" envDefault:"100"`

	// InitialPlayerTroops is the troop count a player carries on join.
	InitialPlayerTroops int `env:"GAME_INITIAL_PLAYER_TROOPS" envDefault:"20"`

	// InitialZoneTroops is the garrison granted when a neutral zone is
	// first claimed.
	InitialZoneTroops int `env:"GAME_INITIAL_ZONE_TROOPS" envDefault:"5"`

	// TroopsAttackingPerTick is the attrition spent by an attacker (and
	// absorbed by the garrison) on each contest tick.
	TroopsAttackingPerTick int `env:"GAME_TROOPS_ATTACKING_PER_TICK" envDefault:"1"`

	// PointsPerCaptureZone is awarded to a zone's owner on each scoring tick.
	PointsPerCaptureZone int `env:"GAME_POINTS_PER_CAPTURE_ZONE" envDefault:"1"`

	// TroopsPerCaptureZone is added to an owned zone's garrison on each
	// scoring tick.
	TroopsPerCaptureZone int `env:"GAME_TROOPS_PER_CAPTURE_ZONE" envDefault:"1"`

	// PointsNeededToWin ends the session as soon as a player reaches it.
	PointsNeededToWin int `env:"GAME_POINTS_NEEDED_TO_WIN" envDefault:"100"`

	// ContestPeriod is the interval of the zone contention sweep.
	ContestPeriod time.Duration `env:"GAME_CONTEST_PERIOD" envDefault:"1s"`

	// ScorePeriod is the interval of the scoring and growth sweep.
	ScorePeriod time.Duration `env:"GAME_SCORE_PERIOD" envDefault:"5s"`

	// GameDuration is the wall-clock limit of an active session.
	GameDuration time.Duration `env:"GAME_DURATION" envDefault:"10m"`
}

// DefaultRules returns the rules with every field at its default value.
func DefaultRules() Rules {
	rules, err := env.ParseAsWithOptions[Rules](env.Options{Environment: map[string]string{}})
	if err != nil {
		panic(fmt.Sprintf("failed to build default rules: %v", err))
	}
	return rules
}

// ParseRules builds the rules from the process environment.
func ParseRules() (Rules, error) {
	rules, err := env.ParseAs[Rules]()
	if err != nil {
		return Rules{}, fmt.Errorf("failed to parse game rules: %w", err)
	}
	return rules, nil
}
