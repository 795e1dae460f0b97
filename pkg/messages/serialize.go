package messages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

func SerializeMessage(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %v", err)
	}

	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(b); err != nil {
		return nil, fmt.Errorf("failed to compress message: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}

	return compressed.Bytes(), nil
}

func DeserializeMessage(data []byte) (*Message, error) {
	compReader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer compReader.Close()
	b, err := io.ReadAll(compReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed message: %v", err)
	}

	message := &Message{}
	if err := json.Unmarshal(b, message); err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %v", err)
	}

	return message, nil
}

// NewRegionUpdateMessage builds a serialized region update for a session.
func NewRegionUpdateMessage(sessionID string, update *RegionUpdate) ([]byte, error) {
	return newMessage(sessionID, MessageTypeRegionUpdate, update)
}

// NewSessionUpdateMessage builds a serialized session update for a session.
func NewSessionUpdateMessage(sessionID string, update *SessionUpdate) ([]byte, error) {
	return newMessage(sessionID, MessageTypeSessionUpdate, update)
}

// NewGameOverMessage builds a serialized game over notice for a session.
func NewGameOverMessage(sessionID string, update *GameOver) ([]byte, error) {
	return newMessage(sessionID, MessageTypeGameOver, update)
}

func newMessage(sessionID string, messageType string, payload interface{}) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %v", err)
	}
	return SerializeMessage(&Message{
		SessionID: sessionID,
		Type:      messageType,
		Payload:   b,
	})
}
