package game

import (
	"context"
	"fmt"
	"sync"
	"testing"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/cbodonnell/skirmish/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrigin = gametypes.Coordinate{Lat: 40.7128, Lon: -74.0060}

func newTestManager(t *testing.T) (*Manager, repositories.SessionStore) {
	t.Helper()
	store := repositories.NewInMemorySessionStore()
	manager := NewManager(NewManagerOptions{
		Store:     store,
		Identity:  identity.NewStaticProvider(true),
		Publisher: &notifications.NoopPublisher{},
		Rules:     quietRules(),
	})
	t.Cleanup(manager.Shutdown)
	return manager, store
}

func TestManager_CreateSession(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)
	rules := quietRules()

	session, err := manager.CreateSession(ctx, "morning match", "alice", testOrigin, false)
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "morning match", session.Name)
	assert.Equal(t, []string{"alice"}, session.Members)
	assert.Equal(t, gametypes.PhaseWaiting, session.Phase)
	assert.Len(t, session.Zones, rules.ZoneCount)
	assert.Equal(t, rules.InitialPlayerTroops, session.Troops["alice"])
	assert.Equal(t, 0, session.Scores["alice"])
	assert.Nil(t, session.StartedAt)

	stored, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Name, stored.Name)
}

func TestManager_CreateSessionValidation(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	_, err := manager.CreateSession(ctx, "", "alice", testOrigin, false)
	assert.True(t, IsValidation(err))

	_, err = manager.CreateSession(ctx, "match", "alice", gametypes.Coordinate{Lat: 91, Lon: 0}, false)
	assert.True(t, IsValidation(err))
}

func TestManager_CreateSessionUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewInMemorySessionStore()
	provider := identity.NewStaticProvider(false)
	provider.AddPlayer("alice", "alice-id")

	manager := NewManager(NewManagerOptions{
		Store:     store,
		Identity:  provider,
		Publisher: &notifications.NoopPublisher{},
		Rules:     quietRules(),
	})
	t.Cleanup(manager.Shutdown)

	_, err := manager.CreateSession(ctx, "match", "stranger", testOrigin, false)
	assert.True(t, IsNotFound(err))

	_, err = manager.CreateSession(ctx, "match", "alice-id", testOrigin, false)
	assert.NoError(t, err)
}

func TestManager_CreateSessionDuplicateName(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	_, err := manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)

	_, err = manager.CreateSession(ctx, "match", "bob", testOrigin, false)
	assert.True(t, IsConflict(err))
}

func TestManager_CreateSessionJoinIfExists(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	created, err := manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)

	joined, err := manager.CreateSession(ctx, "match", "bob", testOrigin, true)
	require.NoError(t, err)

	assert.Equal(t, created.ID, joined.ID)
	assert.Equal(t, []string{"alice", "bob"}, joined.Members)
	assert.Equal(t, gametypes.PhaseActive, joined.Phase)
	require.NotNil(t, joined.StartedAt)
}

func TestManager_JoinSession(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	_, err := manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)

	session, err := manager.JoinSession(ctx, "match", "bob", testOrigin)
	require.NoError(t, err)
	assert.Equal(t, gametypes.PhaseActive, session.Phase)

	_, err = manager.JoinSession(ctx, "no such match", "carol", testOrigin)
	assert.True(t, IsNotFound(err))

	_, err = manager.JoinSession(ctx, "match", "carol", testOrigin)
	assert.True(t, IsConflict(err))
}

func TestManager_JoinSessionByUsername(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewInMemorySessionStore()
	provider := identity.NewStaticProvider(true)
	provider.AddPlayer("alice", "alice-id")

	manager := NewManager(NewManagerOptions{
		Store:     store,
		Identity:  provider,
		Publisher: &notifications.NoopPublisher{},
		Rules:     quietRules(),
	})
	t.Cleanup(manager.Shutdown)

	created, err := manager.CreateSession(ctx, "match", "alice-id", testOrigin, false)
	require.NoError(t, err)

	joined, err := manager.JoinSessionByUsername(ctx, "alice", "bob-id", testOrigin)
	require.NoError(t, err)
	assert.Equal(t, created.ID, joined.ID)

	_, err = manager.JoinSessionByUsername(ctx, "nobody", "carol-id", testOrigin)
	assert.True(t, IsNotFound(err))
}

func TestManager_JoinRelocatesFromPriorSession(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	first, err := manager.CreateSession(ctx, "first", "alice", testOrigin, false)
	require.NoError(t, err)
	_, err = manager.CreateSession(ctx, "second", "bob", testOrigin, false)
	require.NoError(t, err)

	// alice moves to bob's session; her old membership goes away as part
	// of the same call, and her emptied session is deleted
	joined, err := manager.JoinSession(ctx, "second", "alice", testOrigin)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, joined.Members)

	_, err = manager.GetSession(ctx, first.ID)
	assert.True(t, IsNotFound(err))

	found, err := manager.FindSessionOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, joined.ID, found.ID)
}

func TestManager_LeaveSession(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)

	created, err := manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)
	_, err = manager.JoinSession(ctx, "match", "bob", testOrigin)
	require.NoError(t, err)

	session, err := manager.LeaveSession(ctx, created.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, session.Members)

	_, err = manager.LeaveSession(ctx, created.ID, "bob")
	assert.True(t, IsNotFound(err))

	// the last member leaving deletes the session entirely
	_, err = manager.LeaveSession(ctx, created.ID, "alice")
	require.NoError(t, err)

	_, err = store.Get(ctx, created.ID)
	assert.True(t, repositories.IsNotFound(err))
	_, err = manager.GetSession(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestManager_FinishedSessionRejectsMutations(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)

	finished := &gametypes.Session{
		ID:      "finished-1",
		Name:    "old match",
		Members: []string{"alice", "bob"},
		Geolocations: map[string]gametypes.Coordinate{
			"alice": testOrigin,
			"bob":   testOrigin,
		},
		Scores: map[string]int{"alice": 100, "bob": 40},
		Troops: map[string]int{"alice": 5, "bob": 5},
		Zones:  generateZones(testOrigin, quietRules()),
		Winner: "alice",
		Phase:  gametypes.PhaseFinished,
	}
	require.NoError(t, store.Create(ctx, finished))

	_, err := manager.LeaveSession(ctx, finished.ID, "alice")
	assert.True(t, IsState(err))

	_, err = manager.UpdateGeolocation(ctx, finished.ID, "alice", testOrigin)
	assert.True(t, IsState(err))

	_, err = manager.TransferTroops(ctx, finished.ID, "alice", 0, 1)
	assert.True(t, IsState(err))

	_, err = manager.JoinSession(ctx, "old match", "carol", testOrigin)
	assert.True(t, IsState(err))

	// membership in a finished session never traps a player
	session, err := manager.CreateSession(ctx, "new match", "alice", testOrigin, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, session.Members)
}

func TestManager_AdoptsStoredSessions(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)

	// a session written by a previous process, with an owned zone the
	// player stands in
	session := &gametypes.Session{
		ID:      "restored-1",
		Name:    "restored match",
		Members: []string{"alice", "bob"},
		Geolocations: map[string]gametypes.Coordinate{
			"alice": testOrigin,
			"bob":   testOrigin,
		},
		Scores: map[string]int{"alice": 0, "bob": 0},
		Troops: map[string]int{"alice": 20, "bob": 20},
		Zones:  generateZones(testOrigin, quietRules()),
		Phase:  gametypes.PhaseActive,
	}
	session.Zones[0].Owner = "alice"
	session.Zones[0].Troops = 5
	session.Geolocations["alice"] = gametypes.Coordinate{Lat: session.Zones[0].Lat, Lon: session.Zones[0].Lon}
	require.NoError(t, store.Create(ctx, session))

	updated, err := manager.TransferTroops(ctx, session.ID, "alice", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 17, updated.Troops["alice"])
	assert.Equal(t, 8, updated.Zones[0].Troops)
}

func TestManager_UpdateGeolocation(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	created, err := manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)

	moved := gametypes.Coordinate{Lat: 40.713, Lon: -74.007}
	session, err := manager.UpdateGeolocation(ctx, created.ID, "alice", moved)
	require.NoError(t, err)
	assert.Equal(t, moved, session.Geolocations["alice"])

	_, err = manager.UpdateGeolocation(ctx, created.ID, "alice", gametypes.Coordinate{Lat: 99, Lon: 0})
	assert.True(t, IsValidation(err))

	_, err = manager.UpdateGeolocation(ctx, created.ID, "carol", moved)
	assert.True(t, IsNotFound(err))

	_, err = manager.UpdateGeolocation(ctx, "no-such-session", "alice", moved)
	assert.True(t, IsNotFound(err))
}

func TestManager_ListSessions(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	sessions, err := manager.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = manager.CreateSession(ctx, "first", "alice", testOrigin, false)
	require.NoError(t, err)
	_, err = manager.CreateSession(ctx, "second", "bob", testOrigin, false)
	require.NoError(t, err)

	sessions, err = manager.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestManager_IsMember(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	ok, err := manager.IsMember(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.CreateSession(ctx, "match", "alice", testOrigin, false)
	require.NoError(t, err)

	ok, err = manager.IsMember(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_SingleMembershipUnderConcurrentJoins(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t)

	const sessionCount = 4
	for i := 0; i < sessionCount; i++ {
		name := fmt.Sprintf("match-%d", i)
		_, err := manager.CreateSession(ctx, name, fmt.Sprintf("host-%d", i), testOrigin, false)
		require.NoError(t, err)
	}

	// the same player races joins against every session; afterwards they
	// must be in exactly one
	var wg sync.WaitGroup
	for i := 0; i < sessionCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.JoinSession(ctx, fmt.Sprintf("match-%d", i), "drifter", testOrigin)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	memberships := 0
	for _, session := range sessions {
		if session.IsMember("drifter") {
			memberships++
		}
	}
	assert.Equal(t, 1, memberships)
}
