package game

import (
	"math"
	"math/rand"
)

// MapRatio scales the 2000-unit design map down to the 640-unit simulation map.
const MapRatio = 640.0 / 2000.0

// Point is a position in simulation space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the geometry of the U-shaped lane. Friendly units walk it from the
// bottom-left, enemy units from the top-left, in opposite directions.
type Layout struct {
	Ratio       float64 // Multiplies unit speed into distance per tick
	FriendSpawn Point
	EnemySpawn  Point
	FriendGoalX float64 // Friendly units cross once x <= FriendGoalX away from their spawn row
	EnemyGoalX  float64
	TopRow      float64 // Friendly units turn left above this row
	BottomRow   float64 // Enemies turn left below this row
	FarColumn   float64 // Both sides turn vertical past this column
	RowTol      float64 // Crossing ignores units still on their spawn row
	Jitter      float64
}

// DefaultLayout returns the shipped map geometry.
func DefaultLayout() Layout {
	return Layout{
		Ratio:       MapRatio,
		FriendSpawn: Point{X: 146.5 * MapRatio, Y: 1550 * MapRatio},
		EnemySpawn:  Point{X: 100 * MapRatio, Y: 200 * MapRatio},
		FriendGoalX: 100 * MapRatio,
		EnemyGoalX:  100 * MapRatio,
		TopRow:      230 * MapRatio,
		BottomRow:   1550 * MapRatio,
		FarColumn:   1600 * MapRatio,
		RowTol:      1,
		Jitter:      8,
	}
}

// Advance moves u one tick along its side's path.
func (l Layout) Advance(side Side, u *Unit) {
	step := u.Speed * l.Ratio
	if side == Friendly {
		switch {
		case u.Y < l.TopRow:
			u.X -= step
		case u.X > l.FarColumn:
			u.Y -= step
		default:
			u.X += step
		}
		return
	}
	switch {
	case u.Y > l.BottomRow:
		u.X -= step
	case u.X > l.FarColumn:
		u.Y += step
	default:
		u.X += step
	}
}

// Crossed reports whether u has reached the opposing base.
func (l Layout) Crossed(side Side, u *Unit) bool {
	if side == Friendly {
		return u.X <= l.FriendGoalX && math.Abs(u.Y-l.FriendSpawn.Y) > l.RowTol
	}
	return u.X <= l.EnemyGoalX && math.Abs(u.Y-l.EnemySpawn.Y) > l.RowTol
}

// SpawnPoint returns a jittered spawn position. Enemies only drift forward on x;
// friendly units are kept on the near side of their goal line.
func (l Layout) SpawnPoint(side Side, rng *rand.Rand) Point {
	if side == Hostile {
		return Point{
			X: l.EnemySpawn.X + rng.Float64()*l.Jitter,
			Y: l.EnemySpawn.Y + rng.Float64()*2*l.Jitter - l.Jitter,
		}
	}
	p := Point{
		X: l.FriendSpawn.X + rng.Float64()*2*l.Jitter - l.Jitter,
		Y: l.FriendSpawn.Y + rng.Float64()*2*l.Jitter - l.Jitter,
	}
	if p.X < l.FriendGoalX+1 {
		p.X = l.FriendGoalX + 1
	}
	return p
}
