// Package hub provides a thread-safe websocket broadcast hub using the
// channel-based fan-out pattern. The onboarding server uses it to push
// progress snapshots (JSON) and synthesized voice prompts (binary audio)
// to connected clients.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message (progress snapshots, events).
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (synthesized audio).
	BinaryMessage
)

// Message represents a message to be broadcast to clients.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
