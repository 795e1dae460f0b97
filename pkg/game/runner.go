package game

import (
	"context"
	"time"

	"github.com/cbodonnell/skirmish/pkg/config"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/messages"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/cbodonnell/skirmish/pkg/repositories"
)

const (
	// RunnerRequestBufferSize is the capacity of a runner's request channel.
	RunnerRequestBufferSize = 16

	// ExpireRetryInterval is how long a runner waits before retrying the
	// terminal save when the store fails at the expiry instant.
	ExpireRetryInterval = 5 * time.Second
)

type runnerRequest struct {
	// apply mutates a clone of the session. nil requests a read-only snapshot.
	apply func(session *gametypes.Session) error
	reply chan runnerResponse
}

type runnerResponse struct {
	session *gametypes.Session
	err     error
}

// Runner owns one session's mutable record. Every mutation, whether
// request-driven or tick-driven, runs on the runner's single goroutine, so
// operations on a session are totally ordered and lost updates cannot
// occur. Mutations are applied to a clone and only installed after a
// successful save, keeping observable state consistent with the last
// persisted snapshot.
type Runner struct {
	sessionID   string
	sessionName string
	store       repositories.SessionStore
	publisher   notifications.Publisher
	rules       config.Rules
	contest     *ContestEngine
	score       *ScoreEngine

	requests chan runnerRequest
	cancel   context.CancelFunc
	done     chan struct{}

	// the fields below are owned by the run loop
	session       *gametypes.Session
	contestTicker *time.Ticker
	scoreTicker   *time.Ticker
	durationTimer *time.Timer
	durationCh    <-chan time.Time
}

type NewRunnerOptions struct {
	Session   *gametypes.Session
	Store     repositories.SessionStore
	Publisher notifications.Publisher
	Rules     config.Rules
}

func NewRunner(opts NewRunnerOptions) *Runner {
	return &Runner{
		sessionID:   opts.Session.ID,
		sessionName: opts.Session.Name,
		store:       opts.Store,
		publisher:   opts.Publisher,
		rules:       opts.Rules,
		contest:     NewContestEngine(opts.Rules),
		score:       NewScoreEngine(opts.Rules),
		requests:    make(chan runnerRequest, RunnerRequestBufferSize),
		done:        make(chan struct{}),
		session:     opts.Session,
	}
}

func (r *Runner) ID() string {
	return r.sessionID
}

func (r *Runner) Name() string {
	return r.sessionName
}

// Done is closed once the runner's loop has exited, either because it was
// stopped or because its session was deleted.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Start launches the runner's loop.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
}

// Stop cancels the runner's loop and waits for it to exit. Stopping an
// already-stopped runner is a no-op.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

// Do submits a mutation to the runner and waits for the resulting
// snapshot. A nil apply returns a snapshot without mutating anything.
func (r *Runner) Do(ctx context.Context, apply func(session *gametypes.Session) error) (*gametypes.Session, error) {
	req := runnerRequest{
		apply: apply,
		reply: make(chan runnerResponse, 1),
	}
	select {
	case r.requests <- req:
	case <-r.done:
		return nil, &NotFoundError{Resource: "session", Key: r.sessionID}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.session, resp.err
	case <-r.done:
		// the loop may have answered just before exiting
		select {
		case resp := <-req.reply:
			return resp.session, resp.err
		default:
			return nil, &NotFoundError{Resource: "session", Key: r.sessionID}
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot returns a copy of the session's current state.
func (r *Runner) Snapshot(ctx context.Context) (*gametypes.Session, error) {
	return r.Do(ctx, nil)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)
	// requests queued behind the exit (e.g. behind the last member's
	// leave) must still get an answer
	defer r.drainRequests()

	r.contestTicker = time.NewTicker(r.rules.ContestPeriod)
	defer r.contestTicker.Stop()
	r.scoreTicker = time.NewTicker(r.rules.ScorePeriod)
	defer r.scoreTicker.Stop()
	defer r.stopDurationTimer()

	if r.session.Phase == gametypes.PhaseActive {
		// adopted mid-game, e.g. after a restart: the duration timer
		// restarts from zero
		r.armDurationTimer()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.requests:
			r.handleRequest(ctx, req)
			if r.session == nil {
				return
			}
		case <-r.contestTicker.C:
			r.contestTick(ctx)
		case <-r.scoreTicker.C:
			r.scoreTick(ctx)
		case <-r.durationCh:
			r.expire(ctx)
		}
	}
}

func (r *Runner) drainRequests() {
	for {
		select {
		case req := <-r.requests:
			req.reply <- runnerResponse{err: &NotFoundError{Resource: "session", Key: r.sessionID}}
		default:
			return
		}
	}
}

func (r *Runner) handleRequest(ctx context.Context, req runnerRequest) {
	if req.apply == nil {
		req.reply <- runnerResponse{session: r.session.Clone()}
		return
	}

	clone := r.session.Clone()
	if err := req.apply(clone); err != nil {
		req.reply <- runnerResponse{err: err}
		return
	}

	if len(clone.Members) == 0 {
		if err := r.store.Delete(ctx, clone.ID); err != nil && !repositories.IsNotFound(err) {
			req.reply <- runnerResponse{err: &DependencyError{Op: "delete session", Err: err}}
			return
		}
		log.Info("Session %s is empty, deleted", clone.ID)
		r.session = nil
		req.reply <- runnerResponse{session: clone}
		return
	}

	if err := r.store.Save(ctx, clone); err != nil {
		req.reply <- runnerResponse{err: &DependencyError{Op: "save session", Err: err}}
		return
	}

	prev := r.session
	r.session = clone

	if prev.Phase == gametypes.PhaseWaiting && clone.Phase == gametypes.PhaseActive {
		log.Info("Session %s is full, game started", clone.ID)
		r.armDurationTimer()
	}

	r.publishChanges(prev, clone)
	req.reply <- runnerResponse{session: clone.Clone()}
}

func (r *Runner) contestTick(ctx context.Context) {
	if r.session == nil || r.session.Phase != gametypes.PhaseActive {
		return
	}
	clone := r.session.Clone()
	if !r.contest.Sweep(clone) {
		return
	}
	if err := r.store.Save(ctx, clone); err != nil {
		log.Error("Failed to save session %s after contest sweep: %v", clone.ID, err)
		return
	}
	r.session = clone
	r.publishRegions(clone)
}

func (r *Runner) scoreTick(ctx context.Context) {
	if r.session == nil || r.session.Phase != gametypes.PhaseActive {
		return
	}
	clone := r.session.Clone()
	if !r.score.Award(clone) {
		return
	}
	if err := r.store.Save(ctx, clone); err != nil {
		log.Error("Failed to save session %s after scoring sweep: %v", clone.ID, err)
		return
	}
	r.session = clone
	r.publishRegions(clone)
	if clone.Finished() {
		r.finish(clone)
	}
}

func (r *Runner) expire(ctx context.Context) {
	if r.session == nil || r.session.Phase != gametypes.PhaseActive {
		return
	}
	clone := r.session.Clone()
	r.score.FinishByTimeout(clone)
	if err := r.store.Save(ctx, clone); err != nil {
		// the duration timer is one-shot; without a new wakeup the
		// session would stay active through a store outage
		log.Error("Failed to save session %s at expiry, retrying in %s: %v", clone.ID, ExpireRetryInterval, err)
		r.durationCh = time.After(ExpireRetryInterval)
		return
	}
	r.session = clone
	r.finish(clone)
}

// finish stops the clock and announces the result. Stopping an already
// stopped ticker or timer is a no-op, so finishing is idempotent.
func (r *Runner) finish(session *gametypes.Session) {
	// the tickers only exist once the loop is running
	if r.contestTicker != nil {
		r.contestTicker.Stop()
	}
	if r.scoreTicker != nil {
		r.scoreTicker.Stop()
	}
	r.stopDurationTimer()

	if session.Winner != "" {
		log.Info("Session %s finished, winner %s", session.ID, session.Winner)
	} else {
		log.Info("Session %s finished with no winner", session.ID)
	}

	payload, err := messages.NewGameOverMessage(session.ID, &messages.GameOver{
		Winner: session.Winner,
		Scores: session.Scores,
	})
	if err != nil {
		log.Error("Failed to build game over message: %v", err)
		return
	}
	r.publisher.Publish(session.ID, payload)
}

func (r *Runner) armDurationTimer() {
	if r.durationTimer != nil {
		return
	}
	r.durationTimer = time.NewTimer(r.rules.GameDuration)
	r.durationCh = r.durationTimer.C
}

func (r *Runner) stopDurationTimer() {
	if r.durationTimer == nil {
		return
	}
	r.durationTimer.Stop()
	r.durationCh = nil
}

func (r *Runner) publishChanges(prev, curr *gametypes.Session) {
	if prev.Phase != curr.Phase || !equalMembers(prev.Members, curr.Members) {
		payload, err := messages.NewSessionUpdateMessage(curr.ID, &messages.SessionUpdate{
			Phase:   curr.Phase,
			Members: curr.Members,
			Scores:  curr.Scores,
		})
		if err != nil {
			log.Error("Failed to build session update message: %v", err)
		} else {
			r.publisher.Publish(curr.ID, payload)
		}
	}
	if !equalZones(prev.Zones, curr.Zones) || !equalTroops(prev.Troops, curr.Troops) {
		r.publishRegions(curr)
	}
}

func (r *Runner) publishRegions(session *gametypes.Session) {
	payload, err := messages.NewRegionUpdateMessage(session.ID, &messages.RegionUpdate{
		Zones:  session.Zones,
		Troops: session.Troops,
	})
	if err != nil {
		log.Error("Failed to build region update message: %v", err)
		return
	}
	r.publisher.Publish(session.ID, payload)
}

func equalMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalZones(a, b []gametypes.Zone) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalTroops(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for id, troops := range a {
		if b[id] != troops {
			return false
		}
	}
	return true
}
