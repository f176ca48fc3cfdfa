package relay

import (
	"encoding/json"
	"fmt"
)

// Message types carried from content documents to the host.
const (
	TypeFramePress = "frame-press"
	TypeFrameClick = "frame-click"
	TypeFrameKey   = "frame-key"
)

// Message is the envelope posted from a content document to the host.
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"doc_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ClickPayload describes a click inside a content frame. ClientX and ClientY
// are viewport coordinates; FrameX is the original frame-local x.
type ClickPayload struct {
	ClientX    float64 `json:"clientX"`
	ClientY    float64 `json:"clientY"`
	FrameLeft  float64 `json:"frameLeft"`
	FrameWidth float64 `json:"frameWidth"`
	FrameX     float64 `json:"frameX"`
	Target     string  `json:"target,omitempty"`
}

// PressPayload describes a button press inside a content frame.
type PressPayload struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
}

// KeyPayload describes a key press inside a content frame.
type KeyPayload struct {
	Key string `json:"key"`
}

// NewMessage encodes payload into a message of the given type.
func NewMessage(msgType, docID string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, DocumentID: docID, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Type, err)
	}
	return nil
}
