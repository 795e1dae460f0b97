package game

import (
	"github.com/cbodonnell/skirmish/pkg/config"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
)

// ScoreEngine accrues points and garrison growth for zone owners and
// evaluates the win conditions.
type ScoreEngine struct {
	rules config.Rules
}

func NewScoreEngine(rules config.Rules) *ScoreEngine {
	return &ScoreEngine{
		rules: rules,
	}
}

// Award runs one scoring and growth sweep. Every owned zone pays its owner
// points and grows its garrison. If a player reaches the win threshold the
// session transitions to finished with that player as winner. Reports
// whether anything changed.
func (e *ScoreEngine) Award(session *gametypes.Session) bool {
	if session.Finished() {
		return false
	}

	changed := false
	for i := range session.Zones {
		owner := session.Zones[i].Owner
		if owner == "" {
			continue
		}
		// a zone can keep referencing an owner who left the session; it
		// then accrues for nobody
		if _, ok := session.Scores[owner]; !ok {
			continue
		}
		session.Scores[owner] += e.rules.PointsPerCaptureZone
		session.Zones[i].Troops += e.rules.TroopsPerCaptureZone
		changed = true
	}

	if !changed {
		return false
	}

	if winner := e.winnerByThreshold(session); winner != "" {
		session.Winner = winner
		session.Phase = gametypes.PhaseFinished
	}
	return true
}

// winnerByThreshold returns the player who crossed the win threshold.
// When both players cross in the same sweep, the lowest player id wins.
func (e *ScoreEngine) winnerByThreshold(session *gametypes.Session) string {
	winner := ""
	for _, playerID := range session.Members {
		if session.Scores[playerID] < e.rules.PointsNeededToWin {
			continue
		}
		if winner == "" || playerID < winner {
			winner = playerID
		}
	}
	return winner
}

// FinishByTimeout ends the session when the duration timer fires. The
// strictly highest score wins; a tie leaves the winner unset.
func (e *ScoreEngine) FinishByTimeout(session *gametypes.Session) {
	if session.Finished() {
		return
	}

	highScore := -1
	winner := ""
	tied := false
	for _, playerID := range session.Members {
		score := session.Scores[playerID]
		switch {
		case score > highScore:
			highScore = score
			winner = playerID
			tied = false
		case score == highScore:
			tied = true
		}
	}
	if tied {
		winner = ""
	}

	session.Winner = winner
	session.Phase = gametypes.PhaseFinished
}
