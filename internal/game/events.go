package game

import (
	"sync"

	"tuss-cogs/internal/models"
)

// EventType names an engine event.
type EventType string

const (
	EventWaveStarted   EventType = "wave_started"
	EventUnitSpawned   EventType = "unit_spawned"
	EventEnemyKilled   EventType = "enemy_killed"
	EventBaseDamaged   EventType = "base_damaged"
	EventWaveCleared   EventType = "wave_cleared"
	EventLevelComplete EventType = "level_complete"
	EventGameOver      EventType = "game_over"
	EventPiecePlaced   EventType = "piece_placed"
	EventPieceRemoved  EventType = "piece_removed"
	EventTick          EventType = "tick" // After every combat tick; carries no data
)

// Event is something that happened inside the engine.
type Event struct {
	Type EventType   `json:"type"`
	Wave int         `json:"wave"`
	Data interface{} `json:"data,omitempty"`
}

// WaveStarted is the payload of EventWaveStarted.
type WaveStarted struct {
	Enemies int `json:"enemies"`
}

// UnitSpawned is the payload of EventUnitSpawned.
type UnitSpawned struct {
	Side string `json:"side"`
	Unit Unit   `json:"unit"`
}

// EnemyKilled is the payload of EventEnemyKilled.
type EnemyKilled struct {
	Unit   Unit `json:"unit"`
	Reward int  `json:"reward"`
}

// BaseDamaged is the payload of EventBaseDamaged.
type BaseDamaged struct {
	BaseHP  int `json:"baseHp"`
	Crossed int `json:"crossed"`
}

// WaveCleared is the payload of EventWaveCleared.
type WaveCleared struct {
	ByCrossing bool `json:"byCrossing"` // A friendly unit reached the enemy base
}

// PieceChanged is the payload of EventPiecePlaced and EventPieceRemoved.
type PieceChanged struct {
	Cell  int              `json:"cell"`
	Code  models.PieceCode `json:"code"`
	Coins int              `json:"coins"`
}

// Listener receives engine events.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

type subscription struct {
	id       uint64
	listener Listener
}

// Dispatcher fans events out to subscribers.
type Dispatcher struct {
	mu        sync.RWMutex
	seq       uint64
	listeners map[EventType][]subscription
	all       []subscription
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[EventType][]subscription)}
}

// Subscribe registers l for one event type and returns a function that removes it.
func (d *Dispatcher) Subscribe(eventType EventType, l Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := d.seq
	d.listeners[eventType] = append(d.listeners[eventType], subscription{id: id, listener: l})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.listeners[eventType] = without(d.listeners[eventType], id)
	}
}

// SubscribeAll registers l for every event type.
func (d *Dispatcher) SubscribeAll(l Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := d.seq
	d.all = append(d.all, subscription{id: id, listener: l})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.all = without(d.all, id)
	}
}

// Dispatch delivers event to its subscribers, typed subscribers first.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	targets := make([]Listener, 0, len(d.listeners[event.Type])+len(d.all))
	for _, s := range d.listeners[event.Type] {
		targets = append(targets, s.listener)
	}
	for _, s := range d.all {
		targets = append(targets, s.listener)
	}
	d.mu.RUnlock()

	for _, l := range targets {
		l.OnEvent(event)
	}
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
