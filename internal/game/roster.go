package game

import (
	"time"

	"tuss-cogs/internal/models"
)

// Handle identifies a unit within its roster. Handles are never reused.
type Handle uint32

// NoHandle means "no target".
const NoHandle Handle = 0

// Side tells the two rosters apart.
type Side int

const (
	Friendly Side = iota
	Hostile
)

func (s Side) String() string {
	if s == Friendly {
		return "friendly"
	}
	return "enemy"
}

// Unit is a combatant on the lane.
type Unit struct {
	ID           Handle        `json:"id"`
	Sprite       models.Sprite `json:"sprite"`
	X            float64       `json:"x"`
	Y            float64       `json:"y"`
	Speed        float64       `json:"speed"`
	HP           float64       `json:"hp"`
	MaxHP        float64       `json:"maxHp"`
	Damage       float64       `json:"damage"`
	Reach        float64       `json:"reach"`
	AttackSpeed  float64       `json:"atckSpeed"`
	Target       Handle        `json:"targetId"`
	NextAttackAt time.Duration `json:"-"` // Engine time of the next allowed attack
	Reward       int           `json:"reward,omitempty"`
}

// NewUnit builds a unit from stats at the given position.
func NewUnit(sprite models.Sprite, stats models.UnitStats, at Point) Unit {
	return Unit{
		Sprite:      sprite,
		X:           at.X,
		Y:           at.Y,
		Speed:       stats.Speed,
		HP:          stats.HP,
		MaxHP:       stats.HP,
		Damage:      stats.Damage,
		Reach:       stats.Reach,
		AttackSpeed: stats.AttackSpeed,
	}
}

// Roster is an ordered arena of units with stable handles.
type Roster struct {
	side  Side
	next  Handle
	units []Unit
	index map[Handle]int
}

// NewRoster returns an empty roster.
func NewRoster(side Side) *Roster {
	return &Roster{side: side, next: 1, index: make(map[Handle]int)}
}

func (r *Roster) Side() Side { return r.side }
func (r *Roster) Len() int { return len(r.units) }

// Add appends u with a fresh handle and returns the handle.
func (r *Roster) Add(u Unit) Handle {
	u.ID = r.next
	r.next++
	r.index[u.ID] = len(r.units)
	r.units = append(r.units, u)
	return u.ID
}

// Get returns a pointer into the roster; it is invalidated by Remove or Add.
func (r *Roster) Get(h Handle) (*Unit, bool) {
	i, ok := r.index[h]
	if !ok {
		return nil, false
	}
	return &r.units[i], true
}

// Has reports whether h is still in the roster.
func (r *Roster) Has(h Handle) bool {
	_, ok := r.index[h]
	return ok
}

// At returns the i-th unit in roster order.
func (r *Roster) At(i int) *Unit {
	return &r.units[i]
}

// Units returns a copy of the units in roster order.
func (r *Roster) Units() []Unit {
	out := make([]Unit, len(r.units))
	copy(out, r.units)
	return out
}

// Remove drops every unit matching drop, keeping the order of the rest,
// and returns the removed units.
func (r *Roster) Remove(drop func(*Unit) bool) []Unit {
	var removed []Unit
	kept := r.units[:0]
	for i := range r.units {
		if drop(&r.units[i]) {
			removed = append(removed, r.units[i])
			continue
		}
		kept = append(kept, r.units[i])
	}
	if len(removed) == 0 {
		return nil
	}
	// zero the tail so removed units are not retained
	for i := len(kept); i < len(r.units); i++ {
		r.units[i] = Unit{}
	}
	r.units = kept
	r.reindex()
	return removed
}

// Clear removes every unit. Handles keep counting up.
func (r *Roster) Clear() {
	r.units = nil
	r.index = make(map[Handle]int)
}

// Clone returns an independent copy that continues the same handle sequence.
func (r *Roster) Clone() *Roster {
	c := &Roster{side: r.side, next: r.next, units: make([]Unit, len(r.units)), index: make(map[Handle]int, len(r.units))}
	copy(c.units, r.units)
	for h, i := range r.index {
		c.index[h] = i
	}
	return c
}

func (r *Roster) reindex() {
	r.index = make(map[Handle]int, len(r.units))
	for i, u := range r.units {
		r.index[u.ID] = i
	}
}
