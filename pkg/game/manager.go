package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/cbodonnell/skirmish/pkg/config"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/cbodonnell/skirmish/pkg/repositories"
	"github.com/google/uuid"
)

// Manager is the entry point to the game core. It creates sessions, runs
// one Runner per live session, and enforces the rule that a player belongs
// to at most one live session at a time. Membership operations hold the
// manager lock across the whole leave-then-join sequence, which is what
// makes cross-session relocation atomic from the caller's perspective.
type Manager struct {
	lock      sync.Mutex
	store     repositories.SessionStore
	identity  identity.Provider
	publisher notifications.Publisher
	rules     config.Rules

	runners         map[string]*Runner // session id -> runner
	runnersByName   map[string]*Runner
	sessionByPlayer map[string]string // player id -> session id
}

type NewManagerOptions struct {
	Store     repositories.SessionStore
	Identity  identity.Provider
	Publisher notifications.Publisher
	Rules     config.Rules
}

func NewManager(opts NewManagerOptions) *Manager {
	return &Manager{
		store:           opts.Store,
		identity:        opts.Identity,
		publisher:       opts.Publisher,
		rules:           opts.Rules,
		runners:         make(map[string]*Runner),
		runnersByName:   make(map[string]*Runner),
		sessionByPlayer: make(map[string]string),
	}
}

// CreateSession creates a session with the creator as its first member and
// the zone layout generated around the creator's location. When
// joinIfExists is set and the name is taken, the creator joins the
// existing session instead.
func (m *Manager) CreateSession(ctx context.Context, name string, creatorID string, loc gametypes.Coordinate, joinIfExists bool) (*gametypes.Session, error) {
	if name == "" {
		return nil, &ValidationError{Reason: "session name is required"}
	}
	if err := validateCoordinate(loc); err != nil {
		return nil, err
	}
	if err := m.validatePlayer(ctx, creatorID); err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	existing, err := m.runnerForNameLocked(ctx, name)
	if err == nil {
		if !joinIfExists {
			return nil, &ConflictError{Reason: fmt.Sprintf("session %q already exists", name)}
		}
		return m.joinLocked(ctx, existing, creatorID, loc)
	}
	if !IsNotFound(err) {
		return nil, err
	}

	if err := m.relocateLocked(ctx, creatorID, ""); err != nil {
		return nil, err
	}

	session := &gametypes.Session{
		ID:   uuid.NewString(),
		Name: name,
		Members: []string{
			creatorID,
		},
		Geolocations: map[string]gametypes.Coordinate{
			creatorID: loc,
		},
		Scores: map[string]int{
			creatorID: 0,
		},
		Troops: map[string]int{
			creatorID: m.rules.InitialPlayerTroops,
		},
		Zones: generateZones(loc, m.rules),
		Phase: gametypes.PhaseWaiting,
	}

	if err := m.store.Create(ctx, session); err != nil {
		if repositories.IsNameExists(err) {
			return nil, &ConflictError{Reason: fmt.Sprintf("session %q already exists", name)}
		}
		return nil, &DependencyError{Op: "create session", Err: err}
	}

	m.startRunnerLocked(session)
	log.Info("Session %s (%q) created by %s", session.ID, session.Name, creatorID)
	return session.Clone(), nil
}

// JoinSession adds the player to the session with the given name. If the
// player is currently in another live session, that membership is removed
// first as part of the same operation.
func (m *Manager) JoinSession(ctx context.Context, name string, playerID string, loc gametypes.Coordinate) (*gametypes.Session, error) {
	if err := validateCoordinate(loc); err != nil {
		return nil, err
	}
	if err := m.validatePlayer(ctx, playerID); err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	runner, err := m.runnerForNameLocked(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.joinLocked(ctx, runner, playerID, loc)
}

// JoinSessionByUsername adds the player to whichever session the named
// player is currently in.
func (m *Manager) JoinSessionByUsername(ctx context.Context, username string, playerID string, loc gametypes.Coordinate) (*gametypes.Session, error) {
	if err := validateCoordinate(loc); err != nil {
		return nil, err
	}
	if err := m.validatePlayer(ctx, playerID); err != nil {
		return nil, err
	}

	targetID, err := m.identity.LookupIDByUsername(ctx, username)
	if err != nil {
		return nil, &DependencyError{Op: "lookup username", Err: err}
	}
	if targetID == "" {
		return nil, &NotFoundError{Resource: "player", Key: username}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	sessionID, ok := m.sessionByPlayer[targetID]
	if !ok {
		session, err := m.store.FindByMemberID(ctx, targetID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil, &NotFoundError{Resource: "session of player", Key: username}
			}
			return nil, &DependencyError{Op: "find session by member", Err: err}
		}
		sessionID = session.ID
	}

	runner, err := m.runnerForIDLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.joinLocked(ctx, runner, playerID, loc)
}

// LeaveSession removes the player from the session. A session left by its
// last member is deleted from the store and its runner stopped.
func (m *Manager) LeaveSession(ctx context.Context, sessionID string, playerID string) (*gametypes.Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	runner, err := m.runnerForIDLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snapshot, err := runner.Do(ctx, func(session *gametypes.Session) error {
		return removeMember(session, playerID)
	})
	if err != nil {
		return nil, err
	}

	delete(m.sessionByPlayer, playerID)
	if len(snapshot.Members) == 0 {
		m.unregisterLocked(runner)
	}
	return snapshot, nil
}

// UpdateGeolocation records the player's latest position.
func (m *Manager) UpdateGeolocation(ctx context.Context, sessionID string, playerID string, loc gametypes.Coordinate) (*gametypes.Session, error) {
	if err := validateCoordinate(loc); err != nil {
		return nil, err
	}

	runner, err := m.runnerForID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return runner.Do(ctx, func(session *gametypes.Session) error {
		return updateGeolocation(session, playerID, loc)
	})
}

// TransferTroops moves troops between the player and an owned, in-range
// zone's garrison. Positive amounts deposit, negative amounts withdraw.
func (m *Manager) TransferTroops(ctx context.Context, sessionID string, playerID string, zoneIndex int, amount int) (*gametypes.Session, error) {
	runner, err := m.runnerForID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return runner.Do(ctx, func(session *gametypes.Session) error {
		return transferTroops(session, playerID, zoneIndex, amount)
	})
}

// GetSession returns a snapshot of the session with the given id.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*gametypes.Session, error) {
	m.lock.Lock()
	runner, ok := m.runners[sessionID]
	m.lock.Unlock()

	if ok {
		snapshot, err := runner.Snapshot(ctx)
		if err == nil || !IsNotFound(err) {
			return snapshot, err
		}
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "session", Key: sessionID}
		}
		return nil, &DependencyError{Op: "get session", Err: err}
	}
	return session, nil
}

// ListSessions returns snapshots of all stored sessions.
func (m *Manager) ListSessions(ctx context.Context) ([]*gametypes.Session, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return nil, &DependencyError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// FindSessionOf returns the session the player is currently a member of.
func (m *Manager) FindSessionOf(ctx context.Context, playerID string) (*gametypes.Session, error) {
	m.lock.Lock()
	sessionID, ok := m.sessionByPlayer[playerID]
	runner := m.runners[sessionID]
	m.lock.Unlock()

	if ok && runner != nil {
		snapshot, err := runner.Snapshot(ctx)
		if err == nil || !IsNotFound(err) {
			return snapshot, err
		}
	}

	session, err := m.store.FindByMemberID(ctx, playerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "session of player", Key: playerID}
		}
		return nil, &DependencyError{Op: "find session by member", Err: err}
	}
	return session, nil
}

// IsMember reports whether the player is currently in any session.
func (m *Manager) IsMember(ctx context.Context, playerID string) (bool, error) {
	_, err := m.FindSessionOf(ctx, playerID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Shutdown stops every runner. Session records stay in the store and are
// adopted again on demand after a restart.
func (m *Manager) Shutdown() {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, runner := range m.runners {
		runner.Stop()
	}
	m.runners = make(map[string]*Runner)
	m.runnersByName = make(map[string]*Runner)
	m.sessionByPlayer = make(map[string]string)
}

func (m *Manager) validatePlayer(ctx context.Context, playerID string) error {
	ok, err := m.identity.IsValidPlayer(ctx, playerID)
	if err != nil {
		return &DependencyError{Op: "validate player", Err: err}
	}
	if !ok {
		return &NotFoundError{Resource: "player", Key: playerID}
	}
	return nil
}

// joinLocked adds the player to the runner's session, first removing the
// player from any other live session. Callers hold the manager lock.
func (m *Manager) joinLocked(ctx context.Context, runner *Runner, playerID string, loc gametypes.Coordinate) (*gametypes.Session, error) {
	// check the target before relocating, so a doomed join does not cost
	// the player their current membership
	target, err := runner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if target.Finished() {
		return nil, &StateError{Reason: fmt.Sprintf("session %q is finished", target.Name)}
	}
	if target.IsMember(playerID) {
		return nil, &ConflictError{Reason: fmt.Sprintf("player %q is already in session %q", playerID, target.Name)}
	}
	if target.Full(m.rules.MaxMembers) {
		return nil, &ConflictError{Reason: fmt.Sprintf("session %q already has max members", target.Name)}
	}

	if err := m.relocateLocked(ctx, playerID, runner.ID()); err != nil {
		return nil, err
	}

	snapshot, err := runner.Do(ctx, func(session *gametypes.Session) error {
		return addMember(session, playerID, loc, m.rules)
	})
	if err != nil {
		return nil, err
	}

	m.sessionByPlayer[playerID] = runner.ID()
	log.Info("Player %s joined session %s (%q)", playerID, runner.ID(), runner.Name())
	return snapshot, nil
}

// relocateLocked removes the player from whatever live session they are in,
// unless it is the target session itself. Finished sessions are frozen
// history: membership in them never blocks joining a new session.
func (m *Manager) relocateLocked(ctx context.Context, playerID string, targetID string) error {
	currentID, ok := m.sessionByPlayer[playerID]
	if !ok {
		session, err := m.store.FindByMemberID(ctx, playerID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil
			}
			return &DependencyError{Op: "find session by member", Err: err}
		}
		currentID = session.ID
	}
	if currentID == targetID {
		return nil
	}

	runner, err := m.runnerForIDLocked(ctx, currentID)
	if err != nil {
		if IsNotFound(err) {
			delete(m.sessionByPlayer, playerID)
			return nil
		}
		return err
	}

	snapshot, err := runner.Snapshot(ctx)
	if err != nil {
		if IsNotFound(err) {
			delete(m.sessionByPlayer, playerID)
			return nil
		}
		return err
	}
	if snapshot.Finished() {
		delete(m.sessionByPlayer, playerID)
		return nil
	}

	snapshot, err = runner.Do(ctx, func(session *gametypes.Session) error {
		return removeMember(session, playerID)
	})
	if err != nil {
		return err
	}

	delete(m.sessionByPlayer, playerID)
	if len(snapshot.Members) == 0 {
		m.unregisterLocked(runner)
	}
	log.Debug("Player %s relocated out of session %s", playerID, currentID)
	return nil
}

func (m *Manager) runnerForID(ctx context.Context, sessionID string) (*Runner, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.runnerForIDLocked(ctx, sessionID)
}

// runnerForIDLocked returns the live runner for the session, adopting the
// stored record into a new runner when none is running yet (e.g. after a
// restart).
func (m *Manager) runnerForIDLocked(ctx context.Context, sessionID string) (*Runner, error) {
	if runner, ok := m.runners[sessionID]; ok {
		return runner, nil
	}
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "session", Key: sessionID}
		}
		return nil, &DependencyError{Op: "get session", Err: err}
	}
	return m.startRunnerLocked(session), nil
}

func (m *Manager) runnerForNameLocked(ctx context.Context, name string) (*Runner, error) {
	if runner, ok := m.runnersByName[name]; ok {
		return runner, nil
	}
	session, err := m.store.GetByName(ctx, name)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "session", Key: name}
		}
		return nil, &DependencyError{Op: "get session by name", Err: err}
	}
	return m.startRunnerLocked(session), nil
}

func (m *Manager) startRunnerLocked(session *gametypes.Session) *Runner {
	runner := NewRunner(NewRunnerOptions{
		Session:   session,
		Store:     m.store,
		Publisher: m.publisher,
		Rules:     m.rules,
	})
	m.runners[session.ID] = runner
	m.runnersByName[session.Name] = runner
	for _, playerID := range session.Members {
		m.sessionByPlayer[playerID] = session.ID
	}
	runner.Start(context.Background())
	return runner
}

func (m *Manager) unregisterLocked(runner *Runner) {
	delete(m.runners, runner.ID())
	delete(m.runnersByName, runner.Name())
	for playerID, sessionID := range m.sessionByPlayer {
		if sessionID == runner.ID() {
			delete(m.sessionByPlayer, playerID)
		}
	}
	runner.Stop()
}
