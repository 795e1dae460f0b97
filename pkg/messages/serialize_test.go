package messages

import (
	"encoding/json"
	"testing"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	update := &RegionUpdate{
		Zones: []gametypes.Zone{
			{Lat: 40.7128, Lon: -74.0060, Radius: 15, Owner: "alice", Troops: 7, Type: gametypes.ZoneTypeCastle},
			{Lat: 40.7130, Lon: -74.0055, Radius: 15, Type: gametypes.ZoneTypeFort},
		},
		Troops: map[string]int{"alice": 13, "bob": 20},
	}

	payload, err := NewRegionUpdateMessage("session-1", update)
	require.NoError(t, err)

	msg, err := DeserializeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, MessageTypeRegionUpdate, msg.Type)

	var decoded RegionUpdate
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, update.Zones, decoded.Zones)
	assert.Equal(t, update.Troops, decoded.Troops)
}

func TestSerializeDeserializeGameOver(t *testing.T) {
	payload, err := NewGameOverMessage("session-1", &GameOver{
		Winner: "alice",
		Scores: map[string]int{"alice": 100, "bob": 42},
	})
	require.NoError(t, err)

	msg, err := DeserializeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeGameOver, msg.Type)

	var decoded GameOver
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "alice", decoded.Winner)
	assert.Equal(t, 100, decoded.Scores["alice"])
}

func TestDeserializeGarbage(t *testing.T) {
	_, err := DeserializeMessage([]byte("not a zstd frame"))
	assert.Error(t, err)
}
