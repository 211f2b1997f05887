package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/models"
)

const (
	enemiesFile = "enemies.json"
	rewardsFile = "rewards.json"

	// FallbackLevel is read whenever a level's own files are missing.
	FallbackLevel = 1
)

// LevelCatalog loads level files from levels/<n>/ and caches the parsed result.
type LevelCatalog struct {
	dir   string
	ttl   time.Duration
	cache *ristretto.Cache[int, *models.LevelData]
	log   logrus.FieldLogger
}

// NewLevelCatalog returns a catalog reading from dir. Parsed levels are kept for ttl.
func NewLevelCatalog(dir string, ttl time.Duration, log logrus.FieldLogger) (*LevelCatalog, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int, *models.LevelData]{
		NumCounters: 1000,
		MaxCost:     1 << 20, // cost is counted in enemies
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("level cache: %w", err)
	}
	return &LevelCatalog{dir: dir, ttl: ttl, cache: cache, log: log}, nil
}

// Close releases the cache.
func (c *LevelCatalog) Close() {
	c.cache.Close()
}

// Level returns level n. The enemies and rewards files each fall back to
// level 1's copy when level n does not have one. Broken wave data never
// fails the level: an undecodable wave loads empty and invalid spawn groups
// are dropped, so the engine clears those waves immediately.
func (c *LevelCatalog) Level(n int) (models.LevelData, error) {
	if n < 1 {
		n = FallbackLevel
	}
	if lvl, ok := c.cache.Get(n); ok {
		return *lvl, nil
	}

	log := c.log.WithField("level", n)
	data, err := c.readWithFallback(n, enemiesFile)
	if err != nil {
		return models.LevelData{}, err
	}
	waves := decodeWaves(data, log)

	data, err = c.readWithFallback(n, rewardsFile)
	if err != nil {
		return models.LevelData{}, err
	}
	var rewards models.Rewards
	if err := json.Unmarshal(data, &rewards); err != nil {
		return models.LevelData{}, fmt.Errorf("decode level %d %s: %w", n, rewardsFile, err)
	}
	lvl := &models.LevelData{Number: n, Waves: waves, Rewards: rewards}

	cost := int64(1)
	for _, w := range waves {
		cost += int64(w.Total())
	}
	c.cache.SetWithTTL(n, lvl, cost, c.ttl)
	c.cache.Wait()
	return *lvl, nil
}

func (c *LevelCatalog) readWithFallback(n int, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, strconv.Itoa(n), name))
	if errors.Is(err, os.ErrNotExist) && n != FallbackLevel {
		data, err = os.ReadFile(filepath.Join(c.dir, strconv.Itoa(FallbackLevel), name))
	}
	if err != nil {
		return nil, fmt.Errorf("read level %d %s: %w", n, name, err)
	}
	return data, nil
}

func decodeWaves(data []byte, log logrus.FieldLogger) []models.Wave {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).Warn("enemies file is malformed; the level has no waves")
		return nil
	}
	waves := make([]models.Wave, len(raw))
	for wi, r := range raw {
		var w models.Wave
		if err := json.Unmarshal(r, &w); err != nil {
			log.WithError(err).WithField("wave", wi+1).Warn("wave is malformed; it will have no enemies")
			continue
		}
		waves[wi] = validGroups(w, wi+1, log)
	}
	return waves
}

func validGroups(w models.Wave, wave int, log logrus.FieldLogger) models.Wave {
	kept := w[:0]
	for gi, g := range w {
		if reason := groupProblem(g); reason != "" {
			log.WithFields(logrus.Fields{"wave": wave, "group": gi + 1, "reason": reason}).Warn("dropping spawn group")
			continue
		}
		kept = append(kept, g)
	}
	return kept
}

func groupProblem(g models.SpawnGroup) string {
	switch {
	case g.Enemy == "":
		return "missing enemy"
	case g.Quantity < 0:
		return "negative quantity"
	case g.HP <= 0:
		return "hp must be positive"
	}
	return ""
}
