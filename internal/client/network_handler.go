package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"tuss-cogs/internal/game"
	"tuss-cogs/internal/network"
)

const maxEventLines = 8

var errNotConnected = errors.New("not connected to a game")

// Connect opens the websocket of a session created with CreateSession.
func (c *Client) Connect(sessionID string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/auth/game/ws"
	u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.Token)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("dial game: %w", err)
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.view.Reset()
	c.log.WithField("session_id", sessionID).Info("joined game session")
	return nil
}

// Send writes one command to the server.
func (c *Client) Send(msgType string, payload interface{}) error {
	msg, err := network.NewClientMessage(msgType, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// SendMessage writes a prepared command.
func (c *Client) SendMessage(msg network.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	return c.conn.WriteJSON(msg)
}

// Listen applies server messages to the view until the connection drops.
// onUpdate runs after every message that changed the view.
func (c *Client) Listen(onUpdate func()) error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return errNotConnected
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.ClosePolicyViolation) {
				return nil
			}
			return err
		}
		var msg network.ServerMessage
		if err := network.DecodeJSON(data, &msg); err != nil {
			c.log.WithError(err).Warn("discarding malformed server message")
			continue
		}
		if c.view.Apply(msg) && onUpdate != nil {
			onUpdate()
		}
	}
}

// View is what the client knows about its game.
type View struct {
	mu       sync.RWMutex
	snapshot game.Snapshot
	ready    bool
	lastSeq  uint32
	events   []string
}

// NewView returns an empty view.
func NewView() *View {
	return &View{}
}

type eventEnvelope struct {
	Type game.EventType  `json:"type"`
	Wave int             `json:"wave"`
	Data json.RawMessage `json:"data"`
}

// Apply folds one server message into the view and reports whether anything
// visible changed. Messages older than the last one applied are ignored.
func (v *View) Apply(msg network.ServerMessage) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if msg.Seq != 0 && msg.Seq <= v.lastSeq {
		return false
	}
	v.lastSeq = msg.Seq

	switch msg.Type {
	case network.MsgTypeState:
		var snap game.Snapshot
		if err := msg.DecodePayload(&snap); err != nil {
			return false
		}
		v.snapshot = snap
		v.ready = true
		return true
	case network.MsgTypeEvent:
		var ev eventEnvelope
		if err := msg.DecodePayload(&ev); err != nil {
			return false
		}
		line := describeEvent(ev)
		if line == "" {
			return false
		}
		v.addLocked(line)
		return true
	case network.MsgTypeCommandRejected:
		var rej network.CommandRejected
		if err := msg.DecodePayload(&rej); err != nil {
			return false
		}
		v.addLocked(fmt.Sprintf("Rejected %s: %s", rej.Command, rej.Reason))
		return true
	}
	return false
}

// Reset forgets everything, ready for a new session.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = game.Snapshot{}
	v.ready = false
	v.lastSeq = 0
	v.events = nil
}

// Note adds a line of local feedback to the event log.
func (v *View) Note(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addLocked(line)
}

func (v *View) addLocked(line string) {
	v.events = append(v.events, line)
	if len(v.events) > maxEventLines {
		v.events = v.events[len(v.events)-maxEventLines:]
	}
}

// Snapshot returns the last state and whether one has arrived yet.
func (v *View) Snapshot() (game.Snapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot, v.ready
}

// Events returns the recent event lines, oldest first.
func (v *View) Events() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.events))
	copy(out, v.events)
	return out
}

func describeEvent(ev eventEnvelope) string {
	switch ev.Type {
	case game.EventWaveStarted:
		var d game.WaveStarted
		json.Unmarshal(ev.Data, &d)
		return fmt.Sprintf("Wave %d started: %d enemies", ev.Wave, d.Enemies)
	case game.EventEnemyKilled:
		var d game.EnemyKilled
		json.Unmarshal(ev.Data, &d)
		return fmt.Sprintf("%s defeated (+%d coins)", d.Unit.Sprite, d.Reward)
	case game.EventBaseDamaged:
		var d game.BaseDamaged
		json.Unmarshal(ev.Data, &d)
		return fmt.Sprintf("Base hit! HP %d", d.BaseHP)
	case game.EventWaveCleared:
		var d game.WaveCleared
		json.Unmarshal(ev.Data, &d)
		if d.ByCrossing {
			return fmt.Sprintf("Wave %d won: a unit reached the enemy base", ev.Wave)
		}
		return fmt.Sprintf("Wave %d cleared", ev.Wave)
	case game.EventLevelComplete, game.EventGameOver:
		var o game.Outcome
		json.Unmarshal(ev.Data, &o)
		title := "Level complete!"
		if ev.Type == game.EventGameOver {
			title = "Game over."
		}
		return fmt.Sprintf("%s +%d coins +%d gems +%d deposits", title, o.Payout.Coins, o.Payout.Gems, o.Payout.Deposits)
	case game.EventPiecePlaced:
		var d game.PieceChanged
		json.Unmarshal(ev.Data, &d)
		return fmt.Sprintf("Placed %s on cell %d (%d coins left)", pieceName(d.Code), d.Cell, d.Coins)
	case game.EventPieceRemoved:
		var d game.PieceChanged
		json.Unmarshal(ev.Data, &d)
		return fmt.Sprintf("Removed %s from cell %d", pieceName(d.Code), d.Cell)
	}
	// Spawns and ticks show up in the state.
	return ""
}
