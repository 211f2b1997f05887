package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/game"
	"tuss-cogs/internal/models"
	"tuss-cogs/internal/network"
	"tuss-cogs/internal/persistence"
)

const writeWait = 10 * time.Second

var (
	ErrSessionClosed  = errors.New("session is closed")
	errUnknownCommand = errors.New("unknown command")
)

// wsConn is the part of a websocket connection a session writes to.
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscriber struct {
	conn wsConn
	mu   sync.Mutex
	dead bool
}

// GameSession runs one level for one player and fans engine output out to
// every websocket attached to it.
type GameSession struct {
	ID       string
	Username string
	Level    int

	engine *game.Engine
	store  *persistence.Store
	log    logrus.FieldLogger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	seq    uint32
	closed bool

	payout    sync.Once
	closeOnce sync.Once
	done      chan struct{}
	onClose   func(id string)
}

// NewGameSession wraps an engine built from opts. onClose runs once when the session ends.
func NewGameSession(id string, acc *models.PlayerAccount, opts game.Options, store *persistence.Store, log logrus.FieldLogger, onClose func(string)) *GameSession {
	log = log.WithFields(logrus.Fields{"session_id": id, "player": acc.Username})
	opts.Logger = log
	gs := &GameSession{
		ID:       id,
		Username: acc.Username,
		Level:    opts.Level.Number,
		engine:   game.NewEngine(opts),
		store:    store,
		log:      log,
		subs:     make(map[*subscriber]struct{}),
		done:     make(chan struct{}),
		onClose:  onClose,
	}
	gs.engine.Events().SubscribeAll(game.ListenerFunc(gs.onEvent))
	log.WithField("level", gs.Level).Info("game session created")
	return gs
}

// Engine exposes the simulation, mostly for tests.
func (gs *GameSession) Engine() *game.Engine {
	return gs.engine
}

// Done is closed when the session ends.
func (gs *GameSession) Done() <-chan struct{} {
	return gs.done
}

func (gs *GameSession) onEvent(ev game.Event) {
	switch ev.Type {
	case game.EventTick:
		gs.broadcastState()
		return
	case game.EventLevelComplete, game.EventGameOver:
		if o, ok := ev.Data.(game.Outcome); ok {
			gs.applyOutcome(o)
		}
		gs.broadcast(network.MsgTypeEvent, ev)
		gs.broadcastState()
	case game.EventPiecePlaced, game.EventPieceRemoved, game.EventWaveCleared:
		gs.broadcast(network.MsgTypeEvent, ev)
		gs.broadcastState()
	default:
		gs.broadcast(network.MsgTypeEvent, ev)
	}
}

// applyOutcome credits the account. An engine reports its outcome once, and
// the Once keeps it that way even if that ever changes.
func (gs *GameSession) applyOutcome(o game.Outcome) {
	gs.payout.Do(func() {
		if _, err := gs.store.ApplyOutcome(gs.Username, o); err != nil {
			gs.log.WithError(err).Error("failed to apply level outcome")
			return
		}
		gs.log.WithFields(logrus.Fields{
			"outcome":  o.Kind,
			"coins":    o.Payout.Coins,
			"gems":     o.Payout.Gems,
			"deposits": o.Payout.Deposits,
		}).Info("outcome applied to account")
	})
}

// HandleCommand applies one client command. Rejected commands leave the
// engine untouched and return the reason.
func (gs *GameSession) HandleCommand(msg network.ClientMessage) error {
	select {
	case <-gs.done:
		return ErrSessionClosed
	default:
	}

	switch msg.Type {
	case network.MsgTypePlacePiece:
		var cmd network.PlacePieceCommand
		if err := msg.DecodePayload(&cmd); err != nil {
			return err
		}
		return gs.engine.PlacePiece(cmd.Cell, cmd.Code)
	case network.MsgTypePlaceOffer:
		var cmd network.PlaceOfferCommand
		if err := msg.DecodePayload(&cmd); err != nil {
			return err
		}
		return gs.engine.PlaceOffer(cmd.Slot, cmd.Cell)
	case network.MsgTypeRemovePiece:
		var cmd network.RemovePieceCommand
		if err := msg.DecodePayload(&cmd); err != nil {
			return err
		}
		return gs.engine.RemovePiece(cmd.Cell)
	case network.MsgTypeStart:
		if err := gs.engine.Start(); err != nil {
			return err
		}
		gs.broadcastState()
		return nil
	case network.MsgTypeQuit:
		gs.Close()
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownCommand, msg.Type)
}

// Attach registers a connection, sends it the current state and serves its
// commands until it disconnects. The session closes when its last connection goes.
func (gs *GameSession) Attach(conn *websocket.Conn) {
	sub, ok := gs.subscribe(conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session closed")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	gs.sendTo(sub, gs.message(network.MsgTypeState, gs.engine.Snapshot()))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg network.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			gs.log.WithError(err).Debug("discarding malformed message")
			continue
		}
		if err := gs.HandleCommand(msg); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				break
			}
			gs.log.WithFields(logrus.Fields{"command": msg.Type, "reason": err.Error()}).Debug("command rejected")
			gs.sendTo(sub, gs.message(network.MsgTypeCommandRejected, network.CommandRejected{Command: msg.Type, Reason: err.Error()}))
		}
		if msg.Type == network.MsgTypeQuit {
			break
		}
	}

	if gs.unsubscribe(sub) == 0 {
		gs.Close()
	}
}

func (gs *GameSession) subscribe(conn wsConn) (*subscriber, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.closed {
		return nil, false
	}
	sub := &subscriber{conn: conn}
	gs.subs[sub] = struct{}{}
	return sub, true
}

// unsubscribe drops sub and returns how many subscribers are left.
func (gs *GameSession) unsubscribe(sub *subscriber) int {
	gs.mu.Lock()
	delete(gs.subs, sub)
	left := len(gs.subs)
	gs.mu.Unlock()
	sub.conn.Close()
	return left
}

// Close stops the engine, disconnects every subscriber and forgets the session.
func (gs *GameSession) Close() {
	gs.closeOnce.Do(func() {
		gs.mu.Lock()
		gs.closed = true
		subs := make([]*subscriber, 0, len(gs.subs))
		for sub := range gs.subs {
			subs = append(subs, sub)
		}
		gs.subs = make(map[*subscriber]struct{})
		gs.mu.Unlock()

		gs.engine.Stop()
		for _, sub := range subs {
			sub.mu.Lock()
			sub.conn.Close()
			sub.dead = true
			sub.mu.Unlock()
		}
		if gs.onClose != nil {
			gs.onClose(gs.ID)
		}
		gs.log.Info("game session closed")
		close(gs.done)
	})
}

func (gs *GameSession) message(msgType string, payload interface{}) []byte {
	gs.mu.Lock()
	gs.seq++
	seq := gs.seq
	gs.mu.Unlock()

	data, err := json.Marshal(network.ServerMessage{
		Seq:       seq,
		Timestamp: time.Now(),
		SessionID: gs.ID,
		Type:      msgType,
		Payload:   payload,
	})
	if err != nil {
		gs.log.WithError(err).Error("failed to marshal server message")
		return nil
	}
	return data
}

func (gs *GameSession) broadcastState() {
	gs.broadcast(network.MsgTypeState, gs.engine.Snapshot())
}

func (gs *GameSession) broadcast(msgType string, payload interface{}) {
	gs.mu.Lock()
	if len(gs.subs) == 0 {
		gs.mu.Unlock()
		return
	}
	subs := make([]*subscriber, 0, len(gs.subs))
	for sub := range gs.subs {
		subs = append(subs, sub)
	}
	gs.mu.Unlock()

	data := gs.message(msgType, payload)
	for _, sub := range subs {
		gs.sendTo(sub, data)
	}
}

// sendTo writes to one subscriber. A failed write closes the connection; the
// reader side notices and detaches it.
func (gs *GameSession) sendTo(sub *subscriber, data []byte) {
	if data == nil {
		return
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.dead {
		return
	}
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		gs.log.WithError(err).Debug("failed to send update")
		sub.dead = true
		sub.conn.Close()
	}
}
