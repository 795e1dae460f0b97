package notifications

// Publisher is a fire-and-forget broadcast of serialized payloads to
// whoever subscribed to a session. Delivery is best-effort: the game core
// never retries or awaits acknowledgment.
type Publisher interface {
	Publish(sessionID string, payload []byte)
}

// NoopPublisher discards everything. It backs tests and tools that run the
// game core without a transport.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(sessionID string, payload []byte) {
}
