package game

import (
	"math"
	"testing"
	"time"
)

func unitAt(x, y float64, speed, hp, damage, reach, atk float64) Unit {
	return Unit{Sprite: "test", X: x, Y: y, Speed: speed, HP: hp, MaxHP: hp, Damage: damage, Reach: reach, AttackSpeed: atk}
}

func TestRosterHandlesAreNeverReused(t *testing.T) {
	r := NewRoster(Hostile)
	a := r.Add(Unit{})
	b := r.Add(Unit{})
	c := r.Add(Unit{})
	removed := r.Remove(func(u *Unit) bool { return u.ID == b })
	if len(removed) != 1 || removed[0].ID != b {
		t.Fatalf("expected to remove %d, got %+v", b, removed)
	}
	if r.Has(b) {
		t.Fatalf("removed handle still present")
	}
	if r.At(0).ID != a || r.At(1).ID != c {
		t.Fatalf("expected order to be preserved, got %d,%d", r.At(0).ID, r.At(1).ID)
	}
	r.Clear()
	d := r.Add(Unit{})
	if d == a || d == b || d == c || d == NoHandle {
		t.Fatalf("handle %d was reused", d)
	}
}

func TestRosterCloneIsIndependent(t *testing.T) {
	r := NewRoster(Friendly)
	h := r.Add(Unit{HP: 5})
	c := r.Clone()
	u, _ := c.Get(h)
	u.HP = 1
	orig, _ := r.Get(h)
	if orig.HP != 5 {
		t.Fatalf("clone mutation leaked into the original")
	}
	if next := c.Add(Unit{}); next == h {
		t.Fatalf("clone must continue the handle sequence")
	}
}

func TestAttackIntervalClampsSmallSpeeds(t *testing.T) {
	if got := AttackInterval(2); got != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %v", got)
	}
	for _, s := range []float64{0, -3, math.NaN(), 0.0000001} {
		got := AttackInterval(s)
		if got != AttackInterval(minAttackSpeed) {
			t.Fatalf("speed %v: expected clamp to %v, got %v", s, AttackInterval(minAttackSpeed), got)
		}
	}
}

func TestResolveTickKillsAndPaysReward(t *testing.T) {
	layout := DefaultLayout()
	friends := NewRoster(Friendly)
	enemies := NewRoster(Hostile)
	fid := friends.Add(unitAt(200, 200, 10, 1000, 5, 30, 1))
	enemy := unitAt(210, 200, 10, 12, 0, 30, 1)
	enemy.Reward = 4
	eid := enemies.Add(enemy)

	r := ResolveTick(friends, enemies, layout, 0)
	if e, _ := r.Enemies.Get(eid); e.HP != 7 {
		t.Fatalf("expected enemy at 7 hp after first hit, got %v", e.HP)
	}
	if e, _ := enemies.Get(eid); e.HP != 12 {
		t.Fatalf("input roster must not be mutated, got hp %v", e.HP)
	}
	if f, _ := r.Friends.Get(fid); f.X != 200 || f.Target != eid {
		t.Fatalf("friend should hold position and lock the enemy, got %+v", f)
	}

	r = ResolveTick(r.Friends, r.Enemies, layout, 100*time.Millisecond)
	if e, _ := r.Enemies.Get(eid); e.HP != 7 {
		t.Fatalf("attack should be on cooldown, got hp %v", e.HP)
	}
	r = ResolveTick(r.Friends, r.Enemies, layout, time.Second)
	if e, _ := r.Enemies.Get(eid); e.HP != 2 {
		t.Fatalf("expected enemy at 2 hp, got %v", e.HP)
	}
	r = ResolveTick(r.Friends, r.Enemies, layout, 2*time.Second)
	if r.Enemies.Len() != 0 || len(r.Killed) != 1 {
		t.Fatalf("expected the enemy to die, roster=%d killed=%d", r.Enemies.Len(), len(r.Killed))
	}
	if r.Killed[0].HP != 0 {
		t.Fatalf("expected hp clamped to 0, got %v", r.Killed[0].HP)
	}
	if r.Reward != 4 {
		t.Fatalf("expected reward 4, got %d", r.Reward)
	}
	if f, _ := r.Friends.Get(fid); f.Target != NoHandle {
		t.Fatalf("target of a dead enemy must be cleared, got %d", f.Target)
	}
}

func TestResolveTickDamageAccumulates(t *testing.T) {
	friends := NewRoster(Friendly)
	enemies := NewRoster(Hostile)
	friends.Add(unitAt(200, 200, 0, 10, 3, 30, 1))
	friends.Add(unitAt(205, 200, 0, 10, 4, 30, 1))
	eid := enemies.Add(unitAt(210, 200, 0, 20, 0, 0, 1))

	r := ResolveTick(friends, enemies, DefaultLayout(), 0)
	if e, _ := r.Enemies.Get(eid); e.HP != 13 {
		t.Fatalf("expected 7 total damage, got hp %v", e.HP)
	}
}

func TestResolveTickBaseDamageIsFlat(t *testing.T) {
	layout := DefaultLayout()
	enemies := NewRoster(Hostile)
	// Both sit on the bottom row one step from the player boundary.
	enemies.Add(unitAt(layout.EnemyGoalX+1, layout.BottomRow+4, 10, 5, 9, 0, 1))
	enemies.Add(unitAt(layout.EnemyGoalX+2, layout.BottomRow+6, 10, 5, 9, 0, 1))

	r := ResolveTick(NewRoster(Friendly), enemies, layout, 0)
	if len(r.CrossedEnemies) != 2 {
		t.Fatalf("expected both enemies to cross, got %d", len(r.CrossedEnemies))
	}
	if r.BaseDamage() != 1 {
		t.Fatalf("expected base damage 1, got %d", r.BaseDamage())
	}
	if r.Enemies.Len() != 0 || r.EnemiesRemoved() != 2 {
		t.Fatalf("crossed enemies must leave the roster, left=%d removed=%d", r.Enemies.Len(), r.EnemiesRemoved())
	}
	if r.Reward != 0 {
		t.Fatalf("crossing pays nothing, got %d", r.Reward)
	}
}

func TestResolveTickCrossedEnemyDodgesQueuedDamage(t *testing.T) {
	layout := DefaultLayout()
	friends := NewRoster(Friendly)
	enemies := NewRoster(Hostile)
	fid := friends.Add(unitAt(layout.EnemyGoalX+10, layout.BottomRow+4, 0, 10, 50, 30, 1))
	enemies.Add(unitAt(layout.EnemyGoalX+1, layout.BottomRow+4, 10, 5, 0, 0, 1))

	r := ResolveTick(friends, enemies, layout, 0)
	if len(r.CrossedEnemies) != 1 || len(r.Killed) != 0 {
		t.Fatalf("expected a crossing and no kill, crossed=%d killed=%d", len(r.CrossedEnemies), len(r.Killed))
	}
	if f, _ := r.Friends.Get(fid); f.Target != NoHandle {
		t.Fatalf("target that crossed must be cleared")
	}
}

func TestResolveTickFriendlyCrossing(t *testing.T) {
	layout := DefaultLayout()
	friends := NewRoster(Friendly)
	fid := friends.Add(unitAt(layout.FriendGoalX+1, layout.TopRow-10, 10, 5, 1, 0, 1))

	r := ResolveTick(friends, NewRoster(Hostile), layout, 0)
	if len(r.CrossedFriends) != 1 || r.CrossedFriends[0].ID != fid {
		t.Fatalf("expected the friend to cross, got %+v", r.CrossedFriends)
	}
	if r.Friends.Len() != 0 {
		t.Fatalf("crossed friend must leave the roster")
	}
}

func TestResolveTickUsesPreTickPositions(t *testing.T) {
	layout := DefaultLayout()

	// The friend walks into range this tick but may only lock on next tick.
	friends := NewRoster(Friendly)
	enemies := NewRoster(Hostile)
	fid := friends.Add(unitAt(100, 200, 50, 10, 5, 30, 1))
	eid := enemies.Add(unitAt(140, 200, 0, 10, 0, 0, 1))

	r := ResolveTick(friends, enemies, layout, 0)
	f, _ := r.Friends.Get(fid)
	if f.Target != NoHandle || f.X != 100+50*layout.Ratio {
		t.Fatalf("friend should move without a target, got %+v", f)
	}
	if e, _ := r.Enemies.Get(eid); e.HP != 10 {
		t.Fatalf("no damage expected on the approach tick, got hp %v", e.HP)
	}
	r = ResolveTick(r.Friends, r.Enemies, layout, 100*time.Millisecond)
	if f, _ := r.Friends.Get(fid); f.Target != eid {
		t.Fatalf("friend should lock on after closing in, got target %d", f.Target)
	}

	// The enemy must not see the friend's new position in the same tick either.
	friends = NewRoster(Friendly)
	enemies = NewRoster(Hostile)
	fid = friends.Add(unitAt(100, 200, 50, 10, 0, 0, 1))
	eid = enemies.Add(unitAt(140, 200, 0, 10, 5, 30, 1))
	r = ResolveTick(friends, enemies, layout, 0)
	if e, _ := r.Enemies.Get(eid); e.Target != NoHandle {
		t.Fatalf("enemy acquired a target from a post-move position")
	}
	r = ResolveTick(r.Friends, r.Enemies, layout, 100*time.Millisecond)
	if e, _ := r.Enemies.Get(eid); e.Target != fid {
		t.Fatalf("enemy should lock on next tick, got %d", e.Target)
	}
}

func TestResolveTickKeepsTargetWhileInReach(t *testing.T) {
	layout := DefaultLayout()
	friends := NewRoster(Friendly)
	enemies := NewRoster(Hostile)
	fid := friends.Add(unitAt(100, 200, 0, 10, 0, 30, 1))
	first := enemies.Add(unitAt(125, 200, 0, 10, 0, 0, 1))
	second := enemies.Add(unitAt(101, 200, 0, 10, 0, 0, 1))

	r := ResolveTick(friends, enemies, layout, 0)
	if f, _ := r.Friends.Get(fid); f.Target != first {
		t.Fatalf("expected the first enemy in roster order, got %d", f.Target)
	}
	r = ResolveTick(r.Friends, r.Enemies, layout, 100*time.Millisecond)
	if f, _ := r.Friends.Get(fid); f.Target != first {
		t.Fatalf("target should be kept while in reach, got %d", f.Target)
	}

	e, _ := r.Enemies.Get(first)
	e.X = 400
	r = ResolveTick(r.Friends, r.Enemies, layout, 200*time.Millisecond)
	if f, _ := r.Friends.Get(fid); f.Target != second {
		t.Fatalf("expected re-acquisition of the second enemy, got %d", f.Target)
	}
}
