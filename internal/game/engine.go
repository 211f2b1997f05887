package game

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/models"
)

var (
	ErrNotIdle           = errors.New("simulation is running")
	ErrConcluded         = errors.New("level has already ended")
	ErrCellOutOfRange    = errors.New("cell out of range")
	ErrTriggerCell       = errors.New("cell holds a trigger")
	ErrCellOccupied      = errors.New("cell is occupied")
	ErrCellEmpty         = errors.New("cell is empty")
	ErrUnknownPiece      = errors.New("unknown piece")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrUnknownOffer      = errors.New("unknown shop offer")
	ErrOfferUsed         = errors.New("shop offer already used")
	ErrMustSpend         = errors.New("spend coins before the first wave")
)

// State is the controller state of an engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateLevelComplete
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateLevelComplete:
		return "level_complete"
	case StateGameOver:
		return "game_over"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateIdle, StateRunning, StateLevelComplete, StateGameOver} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown engine state %q", text)
}

// Terminal reports whether the level has ended.
func (s State) Terminal() bool {
	return s == StateLevelComplete || s == StateGameOver
}

// Outcome is the result of a finished level and what it pays out.
type Outcome struct {
	Kind           EventType      `json:"kind"` // EventLevelComplete or EventGameOver
	Level          int            `json:"level"`
	CompletedWaves int            `json:"completedWaves"`
	TotalWaves     int            `json:"totalWaves"`
	Payout         models.Rewards `json:"payout"`
}

// Won reports whether the level was completed.
func (o Outcome) Won() bool {
	return o.Kind == EventLevelComplete
}

// Settings are the tunables of an engine.
type Settings struct {
	PhaseInterval    time.Duration
	TickInterval     time.Duration
	BaseHP           int
	StartCoins       int
	FirstWaveCoinCap int // Start is refused on wave 1 while coins exceed this; negative disables the rule
	Layout           Layout
}

// DefaultSettings returns the shipped tuning.
func DefaultSettings() Settings {
	return Settings{
		PhaseInterval:    600 * time.Millisecond,
		TickInterval:     100 * time.Millisecond,
		BaseHP:           12,
		StartCoins:       22,
		FirstWaveCoinCap: 11,
		Layout:           DefaultLayout(),
	}
}

// Options configure NewEngine. Zero values fall back to defaults.
type Options struct {
	Settings Settings
	Level    models.LevelData
	Pieces   models.PieceTable
	Stats    models.UnitStatTable
	Boosts   map[models.Sprite]models.StatBoost
	Variants map[models.Sprite]models.Sprite
	Offers   func(wave int) []models.PieceCode
	Grid     *Grid
	Clock    Clock
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
}

// Engine owns the whole simulation of one level. Every mutation happens under
// a single mutex; events are delivered after it is released.
type Engine struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	settings Settings
	level    models.LevelData
	pieces   models.PieceTable
	offerFor func(wave int) []models.PieceCode
	clock    Clock
	origin   time.Time
	rng      *rand.Rand
	log      logrus.FieldLogger

	grid    *Grid
	spin    *SpinState
	friends *Roster
	enemies *Roster
	spawner *Spawner
	tasks   *TaskSet

	state     State
	wave      int // 1-based
	completed int
	remaining int
	baseHP    int
	coins     int
	offers    []Offer
	outcome   *Outcome

	events  *Dispatcher
	pending []Event
}

// NewEngine builds an idle engine at wave 1 of opts.Level.
func NewEngine(opts Options) *Engine {
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if opts.Pieces == nil {
		opts.Pieces = models.DefaultPieceTable()
	}
	if opts.Stats == nil {
		opts.Stats = models.DefaultUnitStats()
	}
	if opts.Offers == nil {
		opts.Offers = models.OfferPool
	}
	if opts.Grid == nil {
		opts.Grid = DefaultGrid()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Clock.Now().UnixNano()))
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	e := &Engine{
		settings: opts.Settings,
		level:    opts.Level,
		pieces:   opts.Pieces,
		offerFor: opts.Offers,
		clock:    opts.Clock,
		origin:   opts.Clock.Now(),
		rng:      opts.Rand,
		log:      opts.Logger,
		grid:     opts.Grid,
		spin:     NewSpinState(opts.Grid.Len()),
		friends:  NewRoster(Friendly),
		enemies:  NewRoster(Hostile),
		state:    StateIdle,
		wave:     1,
		baseHP:   opts.Settings.BaseHP,
		coins:    opts.Settings.StartCoins,
		events:   NewDispatcher(),
	}
	e.spawner = &Spawner{
		Layout:   opts.Settings.Layout,
		Stats:    opts.Stats,
		Boosts:   opts.Boosts,
		Variants: opts.Variants,
		Rand:     opts.Rand,
	}
	e.tasks = NewTaskSet(opts.Clock, &e.mu, e.flush)
	e.rollOffers()
	return e
}

// Events returns the engine's dispatcher.
func (e *Engine) Events() *Dispatcher {
	return e.events
}

// State returns the current controller state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Outcome returns the result once the level has ended.
func (e *Engine) Outcome() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}

// PlacePiece puts a piece on an empty cell and charges its price.
// On error nothing changes.
func (e *Engine) PlacePiece(cell int, code models.PieceCode) error {
	e.mu.Lock()
	err := e.placeLocked(cell, code)
	e.mu.Unlock()
	e.flush()
	return err
}

// PlaceOffer buys shop offer slot and places it on cell.
func (e *Engine) PlaceOffer(slot, cell int) error {
	e.mu.Lock()
	err := e.placeOfferLocked(slot, cell)
	e.mu.Unlock()
	e.flush()
	return err
}

func (e *Engine) placeOfferLocked(slot, cell int) error {
	if err := e.editableLocked(); err != nil {
		return err
	}
	if slot < 0 || slot >= len(e.offers) {
		return ErrUnknownOffer
	}
	if e.offers[slot].Used {
		return ErrOfferUsed
	}
	if err := e.placeLocked(cell, e.offers[slot].Code); err != nil {
		return err
	}
	e.offers[slot].Used = true
	return nil
}

func (e *Engine) placeLocked(cell int, code models.PieceCode) error {
	if err := e.editableLocked(); err != nil {
		return err
	}
	if !e.grid.InBounds(cell) {
		return ErrCellOutOfRange
	}
	spec, ok := e.pieces.Lookup(code)
	if !ok || code == models.PieceTrigger {
		return ErrUnknownPiece
	}
	switch current := e.grid.At(cell); {
	case current == models.PieceTrigger:
		return ErrTriggerCell
	case current != models.PieceEmpty:
		return ErrCellOccupied
	}
	if e.coins < spec.Price {
		return ErrInsufficientCoins
	}
	e.grid.set(cell, code)
	e.coins -= spec.Price
	e.emit(EventPiecePlaced, PieceChanged{Cell: cell, Code: code, Coins: e.coins})
	return nil
}

// RemovePiece clears a placed piece. The price is not refunded.
func (e *Engine) RemovePiece(cell int) error {
	e.mu.Lock()
	err := e.removeLocked(cell)
	e.mu.Unlock()
	e.flush()
	return err
}

func (e *Engine) removeLocked(cell int) error {
	if err := e.editableLocked(); err != nil {
		return err
	}
	if !e.grid.InBounds(cell) {
		return ErrCellOutOfRange
	}
	code := e.grid.At(cell)
	switch code {
	case models.PieceTrigger:
		return ErrTriggerCell
	case models.PieceEmpty:
		return ErrCellEmpty
	}
	e.grid.set(cell, models.PieceEmpty)
	e.emit(EventPieceRemoved, PieceChanged{Cell: cell, Code: code, Coins: e.coins})
	return nil
}

func (e *Engine) editableLocked() error {
	switch {
	case e.state.Terminal():
		return ErrConcluded
	case e.state != StateIdle:
		return ErrNotIdle
	}
	return nil
}

// Start runs the current wave. The first propagation phase fires immediately,
// along with any enemy scheduled at offset zero.
func (e *Engine) Start() error {
	e.mu.Lock()
	err := e.startLocked()
	e.mu.Unlock()
	e.flush()
	return err
}

func (e *Engine) startLocked() error {
	if err := e.editableLocked(); err != nil {
		return err
	}
	if e.wave == 1 && e.settings.FirstWaveCoinCap >= 0 && e.coins > e.settings.FirstWaveCoinCap {
		return ErrMustSpend
	}

	e.resetRunLocked()
	plan := PlanWave(e.level.Wave(e.wave))
	e.remaining = len(plan)
	e.state = StateRunning
	e.log.WithFields(logrus.Fields{"level": e.level.Number, "wave": e.wave, "enemies": len(plan)}).Info("wave started")
	e.emit(EventWaveStarted, WaveStarted{Enemies: len(plan)})

	if len(plan) == 0 {
		e.winWaveLocked(false)
		return nil
	}

	e.propagateLocked()
	for _, order := range plan {
		g := order.Group
		if order.At == 0 {
			e.spawnEnemyLocked(g)
			continue
		}
		e.tasks.After(order.At, func() { e.spawnEnemyLocked(g) })
	}
	e.tasks.Every(e.settings.PhaseInterval, e.propagateLocked)
	e.tasks.Every(e.settings.TickInterval, e.tickLocked)
	return nil
}

// Stop aborts a running wave and returns to idle on the same wave. Pending
// spawns and timers are cancelled. Stopping an idle or finished engine only
// cancels timers.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateRunning {
		e.resetRunLocked()
		e.state = StateIdle
		e.log.WithField("wave", e.wave).Info("wave aborted")
	} else {
		e.tasks.CancelAll()
	}
	e.mu.Unlock()
	e.flush()
}

// resetRunLocked cancels every scheduled callback and clears per-run state.
func (e *Engine) resetRunLocked() {
	e.tasks.CancelAll()
	e.spin.Reset()
	e.friends.Clear()
	e.enemies.Clear()
	e.remaining = 0
}

func (e *Engine) now() time.Duration {
	return e.clock.Now().Sub(e.origin)
}

func (e *Engine) propagateLocked() {
	if e.state != StateRunning {
		return
	}
	for _, sprite := range e.spin.Step(e.grid, e.pieces) {
		u, ok := e.spawner.Friend(sprite)
		if !ok {
			e.log.WithField("sprite", sprite).Debug("no stats for sprite, spawn skipped")
			continue
		}
		u.ID = e.friends.Add(u)
		e.emit(EventUnitSpawned, UnitSpawned{Side: Friendly.String(), Unit: u})
	}
}

func (e *Engine) spawnEnemyLocked(g models.SpawnGroup) {
	if e.state != StateRunning {
		return
	}
	u := e.spawner.Enemy(g)
	u.ID = e.enemies.Add(u)
	e.emit(EventUnitSpawned, UnitSpawned{Side: Hostile.String(), Unit: u})
}

// tickLocked applies one combat tick. Terminal conditions are checked in order
// (base destroyed, friendly crossing, all enemies gone) and the first one ends
// the tick.
func (e *Engine) tickLocked() {
	if e.state != StateRunning {
		return
	}
	r := ResolveTick(e.friends, e.enemies, e.settings.Layout, e.now())
	e.emit(EventTick, nil)

	if hit := r.BaseDamage(); hit > 0 {
		e.baseHP -= hit
		if e.baseHP < 0 {
			e.baseHP = 0
		}
		e.emit(EventBaseDamaged, BaseDamaged{BaseHP: e.baseHP, Crossed: len(r.CrossedEnemies)})
		if e.baseHP == 0 {
			e.gameOverLocked()
			return
		}
	}
	e.coins += r.Reward
	for _, u := range r.Killed {
		e.emit(EventEnemyKilled, EnemyKilled{Unit: u, Reward: u.Reward})
	}
	if len(r.CrossedFriends) > 0 {
		e.winWaveLocked(true)
		return
	}

	e.friends, e.enemies = r.Friends, r.Enemies

	if removed := r.EnemiesRemoved(); removed > 0 && e.remaining > 0 {
		e.remaining -= removed
		if e.remaining <= 0 {
			e.remaining = 0
			e.winWaveLocked(false)
		}
	}
}

func (e *Engine) winWaveLocked(byCrossing bool) {
	e.resetRunLocked()
	e.completed++
	e.emit(EventWaveCleared, WaveCleared{ByCrossing: byCrossing})
	e.log.WithFields(logrus.Fields{"wave": e.wave, "by_crossing": byCrossing}).Info("wave cleared")

	if e.wave < len(e.level.Waves) {
		e.wave++
		e.state = StateIdle
		e.rollOffers()
		return
	}

	reward := e.level.Rewards
	e.finishLocked(StateLevelComplete, Outcome{
		Kind:           EventLevelComplete,
		Level:          e.level.Number,
		CompletedWaves: e.completed,
		TotalWaves:     len(e.level.Waves),
		Payout:         models.Rewards{Coins: e.coins + reward.Coins, Gems: reward.Gems, Deposits: reward.Deposits},
	})
}

func (e *Engine) gameOverLocked() {
	e.resetRunLocked()
	total := len(e.level.Waves)
	e.finishLocked(StateGameOver, Outcome{
		Kind:           EventGameOver,
		Level:          e.level.Number,
		CompletedWaves: e.completed,
		TotalWaves:     total,
		Payout:         e.level.Rewards.Fraction(e.completed, total),
	})
}

func (e *Engine) finishLocked(state State, o Outcome) {
	e.state = state
	e.outcome = &o
	e.offers = nil
	e.log.WithFields(logrus.Fields{
		"level":    o.Level,
		"outcome":  o.Kind,
		"coins":    o.Payout.Coins,
		"gems":     o.Payout.Gems,
		"deposits": o.Payout.Deposits,
	}).Info("level finished")
	e.emit(o.Kind, o)
}

func (e *Engine) rollOffers() {
	e.offers = DrawOffers(e.offerFor(e.wave), e.pieces, e.rng)
}

func (e *Engine) emit(t EventType, data interface{}) {
	e.pending = append(e.pending, Event{Type: t, Wave: e.wave, Data: data})
}

// flush delivers queued events outside the state lock, one batch at a time.
func (e *Engine) flush() {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.mu.Lock()
	batch := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, ev := range batch {
		e.events.Dispatch(ev)
	}
}
