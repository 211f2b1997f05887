package network

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON marshals an interface{} into a JSON byte slice.
func EncodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeJSON unmarshals a JSON byte slice into an interface{}.
// The second argument should be a pointer to the struct you want to decode into.
func DecodeJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// NewClientMessage wraps a command payload in its envelope.
func NewClientMessage(msgType string, payload interface{}) (ClientMessage, error) {
	msg := ClientMessage{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	msg.Payload = raw
	return msg, nil
}

// DecodePayload unpacks the payload of a client message into v.
func (m ClientMessage) DecodePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: bad payload: %w", m.Type, err)
	}
	return nil
}

// DecodePayload re-decodes the payload of a received server message into v.
func (m ServerMessage) DecodePayload(v interface{}) error {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
