package network

import (
	"encoding/json"
	"time"
)

// Server to client message types.
const (
	MsgTypeState           = "state"
	MsgTypeEvent           = "event"
	MsgTypeCommandRejected = "command_rejected"
)

// RawPayload holds a payload that is decoded once its type is known.
type RawPayload = json.RawMessage

// ServerMessage is the envelope of every message the server pushes.
type ServerMessage struct {
	Seq       uint32      `json:"seq"` // Increases per session
	Timestamp time.Time   `json:"timestamp"`
	SessionID string      `json:"session_id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
}

// CommandRejected tells a client why its command had no effect.
type CommandRejected struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}
