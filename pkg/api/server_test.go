package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cbodonnell/skirmish/pkg/config"
	"github.com/cbodonnell/skirmish/pkg/game"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/cbodonnell/skirmish/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rules := config.DefaultRules()
	manager := game.NewManager(game.NewManagerOptions{
		Store:     repositories.NewInMemorySessionStore(),
		Identity:  identity.NewStaticProvider(true),
		Publisher: notifications.NewNoopPublisher(),
		Rules:     rules,
	})
	t.Cleanup(manager.Shutdown)

	apiServer := NewAPIServer(NewAPIServerOptions{
		Identity: identity.NewStaticProvider(true),
		Manager:  manager,
		Hub:      notifications.NewHub(),
	})
	server := httptest.NewServer(apiServer.server.Handler)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPIServer_GameLifecycle(t *testing.T) {
	server := newTestServer(t)

	create := map[string]interface{}{
		"name":      "park match",
		"latitude":  40.7128,
		"longitude": -74.0060,
	}

	resp := doJSON(t, server, http.MethodPost, "/games", "alice", create)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session gametypes.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, "park match", session.Name)
	assert.Equal(t, []string{"alice"}, session.Members)
	assert.Equal(t, gametypes.PhaseWaiting, session.Phase)

	// duplicate name conflicts
	resp = doJSON(t, server, http.MethodPost, "/games", "bob", create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// joining by name activates the session
	join := map[string]interface{}{
		"name":      "park match",
		"latitude":  40.7128,
		"longitude": -74.0060,
	}
	resp = doJSON(t, server, http.MethodPost, "/games/join", "bob", join)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var joined gametypes.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&joined))
	assert.Equal(t, gametypes.PhaseActive, joined.Phase)

	// a third player is turned away
	resp = doJSON(t, server, http.MethodPost, "/games/join", "carol", join)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, "/games/"+session.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, "/games/current", "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, server, http.MethodPost, "/games/"+session.ID+"/leave", "bob", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPIServer_ErrorMapping(t *testing.T) {
	server := newTestServer(t)

	// no bearer token
	resp := doJSON(t, server, http.MethodGet, "/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// bad coordinate
	resp = doJSON(t, server, http.MethodPost, "/games", "alice", map[string]interface{}{
		"name":     "match",
		"latitude": 99.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// empty name
	resp = doJSON(t, server, http.MethodPost, "/games", "alice", map[string]interface{}{
		"latitude": 1.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown session
	resp = doJSON(t, server, http.MethodGet, "/games/no-such-id", "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, server, http.MethodPost, "/games/join", "alice", map[string]interface{}{
		"name": "no such match", "latitude": 1.0, "longitude": 1.0,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
