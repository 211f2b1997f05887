package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tuss-cogs/internal/game"
	"tuss-cogs/internal/models"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits, '_' or '-'")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")

	// Re-exported so callers only need this package.
	ErrInsufficientFunds = models.ErrInsufficientFunds
	ErrMaxedOut          = models.ErrMaxedOut
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const minPasswordLen = 6

// Store keeps one JSON file per player account under dir.
type Store struct {
	dir string
	mu  sync.Mutex // Serializes read-modify-write of account files
	now func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) path(username string) string {
	return filepath.Join(s.dir, username+".json")
}

// CreateAccount registers a new player with fresh progress.
func (s *Store) CreateAccount(username, password string) (*models.PlayerAccount, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(username)); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat account %s: %w", username, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &models.PlayerAccount{
		ID:             uuid.NewString(),
		Username:       username,
		HashedPassword: string(hashed),
		Progress:       models.NewProgress(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.saveLocked(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both report ErrInvalidCredentials.
func (s *Store) Authenticate(username, password string) (*models.PlayerAccount, error) {
	acc, err := s.Load(username)
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInvalidUsername) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// Load reads a player's account.
func (s *Store) Load(username string) (*models.PlayerAccount, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(username)
}

func (s *Store) loadLocked(username string) (*models.PlayerAccount, error) {
	data, err := os.ReadFile(s.path(username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", username, err)
	}

	var acc models.PlayerAccount
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", username, err)
	}
	return &acc, nil
}

// Save writes the account, replacing the previous file atomically.
func (s *Store) Save(acc *models.PlayerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(acc)
}

func (s *Store) saveLocked(acc *models.PlayerAccount) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(acc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account %s: %w", acc.Username, err)
	}
	tmp, err := os.CreateTemp(s.dir, acc.Username+".*.tmp")
	if err != nil {
		return fmt.Errorf("save account %s: %w", acc.Username, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", acc.Username, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", acc.Username, err)
	}
	if err := os.Rename(tmp.Name(), s.path(acc.Username)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", acc.Username, err)
	}
	return nil
}

// Update loads an account, applies fn and saves it when fn succeeds.
func (s *Store) Update(username string, fn func(*models.PlayerAccount) error) (*models.PlayerAccount, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadLocked(username)
	if err != nil {
		return nil, err
	}
	if err := fn(acc); err != nil {
		return nil, err
	}
	if err := s.saveLocked(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// ApplyOutcome credits a finished level's payout. A won level also moves the
// player on to the next level.
func (s *Store) ApplyOutcome(username string, o game.Outcome) (*models.PlayerAccount, error) {
	return s.Update(username, func(acc *models.PlayerAccount) error {
		acc.Progress.Credit(o.Payout)
		if o.Won() && o.Level >= acc.Progress.CurrentLevel {
			acc.Progress.CurrentLevel = o.Level + 1
		}
		return nil
	})
}

// UpgradeCharacter buys a character or a level of experience for it.
func (s *Store) UpgradeCharacter(username string, name models.Sprite) (*models.PlayerAccount, models.Character, error) {
	var bought models.Character
	acc, err := s.Update(username, func(acc *models.PlayerAccount) error {
		c, err := acc.Progress.BuyCharacter(name)
		bought = c
		return err
	})
	return acc, bought, err
}

// UpgradeDeposit buys one deposit upgrade.
func (s *Store) UpgradeDeposit(username, name string) (*models.PlayerAccount, models.DepositUpgrade, error) {
	var bought models.DepositUpgrade
	acc, err := s.Update(username, func(acc *models.PlayerAccount) error {
		u, err := acc.Progress.BuyDeposit(name)
		bought = u
		return err
	})
	return acc, bought, err
}
