package game

import (
	"math"
	"time"
)

const minAttackSpeed = 0.001

// AttackInterval converts attacks per second into the delay between attacks.
// Speeds at or below a small epsilon (or NaN) are clamped.
func AttackInterval(attackSpeed float64) time.Duration {
	if !(attackSpeed >= minAttackSpeed) {
		attackSpeed = minAttackSpeed
	}
	return time.Duration(1000 / attackSpeed * float64(time.Millisecond))
}

// InReach reports whether b is inside a's square attack box.
func InReach(a, b *Unit) bool {
	return math.Abs(a.X-b.X) <= a.Reach && math.Abs(a.Y-b.Y) <= a.Reach
}

// ApplyDamage reduces the unit's HP, clamping at zero.
func ApplyDamage(u *Unit, damage float64) {
	u.HP -= damage
	if u.HP < 0 {
		u.HP = 0
	}
}

// TickReport is the result of one combat tick. The input rosters are left untouched.
type TickReport struct {
	Friends        *Roster
	Enemies        *Roster
	Killed         []Unit // Enemies killed this tick
	Lost           []Unit // Friendly units killed this tick
	CrossedEnemies []Unit
	CrossedFriends []Unit
	Reward         int
}

// BaseDamage is what the player base loses this tick: one point if any enemy crossed.
func (r TickReport) BaseDamage() int {
	if len(r.CrossedEnemies) > 0 {
		return 1
	}
	return 0
}

// EnemiesRemoved counts enemies that left play through death or crossing.
func (r TickReport) EnemiesRemoved() int {
	return len(r.Killed) + len(r.CrossedEnemies)
}

// ResolveTick runs one combat tick on copies of both rosters.
//
// Targets are chosen against pre-tick positions for both sides. A unit with a
// target holds position and attacks when its cooldown allows; a unit without one
// walks the lane. Crossed units leave before damage lands, then dead units are
// removed and any target pointing at a removed unit is cleared.
func ResolveTick(friends, enemies *Roster, layout Layout, now time.Duration) TickReport {
	nf := friends.Clone()
	ne := enemies.Clone()

	for i := 0; i < nf.Len(); i++ {
		acquire(nf.At(i), enemies)
	}
	for i := 0; i < ne.Len(); i++ {
		acquire(ne.At(i), friends)
	}

	damageToEnemies := make(map[Handle]float64)
	damageToFriends := make(map[Handle]float64)
	crossedFriend := make(map[Handle]bool)
	crossedEnemy := make(map[Handle]bool)

	act := func(side Side, u *Unit, damage map[Handle]float64, crossed map[Handle]bool) {
		if u.Target != NoHandle {
			if now >= u.NextAttackAt {
				damage[u.Target] += u.Damage
				u.NextAttackAt = now + AttackInterval(u.AttackSpeed)
			}
			return
		}
		layout.Advance(side, u)
		if layout.Crossed(side, u) {
			crossed[u.ID] = true
		}
	}
	for i := 0; i < nf.Len(); i++ {
		act(Friendly, nf.At(i), damageToEnemies, crossedFriend)
	}
	for i := 0; i < ne.Len(); i++ {
		act(Hostile, ne.At(i), damageToFriends, crossedEnemy)
	}

	report := TickReport{Friends: nf, Enemies: ne}
	report.CrossedEnemies = ne.Remove(func(u *Unit) bool { return crossedEnemy[u.ID] })
	report.CrossedFriends = nf.Remove(func(u *Unit) bool { return crossedFriend[u.ID] })

	for h, dmg := range damageToEnemies {
		if u, ok := ne.Get(h); ok {
			ApplyDamage(u, dmg)
		}
	}
	for h, dmg := range damageToFriends {
		if u, ok := nf.Get(h); ok {
			ApplyDamage(u, dmg)
		}
	}

	report.Killed = ne.Remove(func(u *Unit) bool { return u.HP <= 0 })
	report.Lost = nf.Remove(func(u *Unit) bool { return u.HP <= 0 })
	clearStaleTargets(nf, ne)
	clearStaleTargets(ne, nf)

	for _, u := range report.Killed {
		report.Reward += u.Reward
	}
	return report
}

// acquire keeps u's target if it is still in reach, otherwise locks onto the
// first opponent in reach, or clears the target.
func acquire(u *Unit, opponents *Roster) {
	if u.Target != NoHandle {
		if t, ok := opponents.Get(u.Target); ok && InReach(u, t) {
			return
		}
	}
	u.Target = NoHandle
	for i := 0; i < opponents.Len(); i++ {
		if t := opponents.At(i); InReach(u, t) {
			u.Target = t.ID
			return
		}
	}
}

func clearStaleTargets(units, opponents *Roster) {
	for i := 0; i < units.Len(); i++ {
		u := units.At(i)
		if u.Target != NoHandle && !opponents.Has(u.Target) {
			u.Target = NoHandle
		}
	}
}
