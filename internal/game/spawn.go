package game

import (
	"math"
	"math/rand"
	"time"

	"tuss-cogs/internal/models"
)

// SpawnOrder is one scheduled enemy spawn, relative to wave start.
type SpawnOrder struct {
	At    time.Duration
	Group models.SpawnGroup
}

// SpawnStep is the gap between two units of a group: the delay in whole
// milliseconds, at least 1ms.
func SpawnStep(delaySeconds float64) time.Duration {
	ms := math.Floor(delaySeconds * 1000)
	if !(ms >= 1) {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// PlanWave lays out every enemy of a wave on one timeline. Groups run back to
// back rather than in parallel, so the offsets keep growing across groups.
func PlanWave(w models.Wave) []SpawnOrder {
	var plan []SpawnOrder
	var at time.Duration
	for _, g := range w {
		step := SpawnStep(g.SpawnDelay)
		for i := 0; i < g.Quantity; i++ {
			plan = append(plan, SpawnOrder{At: at, Group: g})
			at += step
		}
	}
	return plan
}

// EnemyFromGroup builds an enemy with the group's stats at p.
func EnemyFromGroup(g models.SpawnGroup, p Point) Unit {
	u := NewUnit(g.Enemy, g.Stats(), p)
	u.Reward = g.Reward
	return u
}

// Spawner creates units for the engine.
type Spawner struct {
	Layout   Layout
	Stats    models.UnitStatTable
	Boosts   map[models.Sprite]models.StatBoost // Optional progression bonuses
	Variants map[models.Sprite]models.Sprite    // Artwork override per base sprite
	Rand     *rand.Rand
}

// Friend builds a friendly unit for sprite, or reports false when the sprite has no stats.
func (s *Spawner) Friend(sprite models.Sprite) (Unit, bool) {
	stats, ok := s.Stats[sprite]
	if !ok {
		return Unit{}, false
	}
	if b, ok := s.Boosts[sprite]; ok {
		stats = stats.WithBoost(b)
	}
	u := NewUnit(sprite, stats, s.Layout.SpawnPoint(Friendly, s.Rand))
	if v, ok := s.Variants[sprite]; ok && v != "" {
		u.Sprite = v
	}
	return u, true
}

// Enemy builds an enemy for a spawn order.
func (s *Spawner) Enemy(g models.SpawnGroup) Unit {
	return EnemyFromGroup(g, s.Layout.SpawnPoint(Hostile, s.Rand))
}
