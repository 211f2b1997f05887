package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/game"
	"tuss-cogs/internal/models"
	"tuss-cogs/internal/persistence"
)

// SessionManager tracks every running game session.
type SessionManager struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex

	store    *persistence.Store
	settings game.Settings
	clock    game.Clock
	log      logrus.FieldLogger
}

// NewSessionManager returns an empty manager. clock may be nil for wall time.
func NewSessionManager(store *persistence.Store, settings game.Settings, clock game.Clock, log logrus.FieldLogger) *SessionManager {
	if clock == nil {
		clock = game.SystemClock
	}
	return &SessionManager{
		sessions: make(map[string]*GameSession),
		store:    store,
		settings: settings,
		clock:    clock,
		log:      log,
	}
}

// Create starts a session for acc on level, replacing any session the player
// already had. The player's character boosts and artwork apply to every
// friendly unit spawned in it.
func (sm *SessionManager) Create(acc *models.PlayerAccount, level models.LevelData) *GameSession {
	for _, old := range sm.ownedBy(acc.Username) {
		old.Close()
	}

	id := uuid.NewString()
	opts := game.Options{
		Settings: sm.settings,
		Level:    level,
		Boosts:   acc.Progress.Boosts(),
		Variants: acc.Progress.Variants(),
		Clock:    sm.clock,
	}
	session := NewGameSession(id, acc, opts, sm.store, sm.log, sm.Remove)

	sm.mu.Lock()
	sm.sessions[id] = session
	sm.mu.Unlock()
	return session
}

// Get returns a running session.
func (sm *SessionManager) Get(id string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[id]
	return session, ok
}

func (sm *SessionManager) ownedBy(username string) []*GameSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	var owned []*GameSession
	for _, s := range sm.sessions {
		if s.Username == username {
			owned = append(owned, s)
		}
	}
	return owned
}

// Remove forgets a session. It does not close it.
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	_, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if ok {
		sm.log.WithField("session_id", id).Debug("session removed")
	}
}

// Len is the number of running sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CloseAll ends every session.
func (sm *SessionManager) CloseAll() {
	sm.mu.RLock()
	sessions := make([]*GameSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
