package game

import "tuss-cogs/internal/models"

// RotatingSet returns the cells that turn on a phase: every trigger, plus every
// piece reachable from a trigger's phase neighbor through orthogonally connected
// non-empty, non-trigger cells. Triggers come first, then cells in BFS order.
func RotatingSet(g *Grid, phase Direction) []int {
	seen := make([]bool, g.Len())
	var out []int
	triggers := g.Triggers()
	for _, t := range triggers {
		seen[t] = true
		out = append(out, t)
	}

	for _, t := range triggers {
		start, ok := g.Neighbor(t, phase)
		if !ok || !g.At(start).IsCog() || seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			out = append(out, cur)
			for _, d := range [...]Direction{Up, Down, Left, Right} {
				n, ok := g.Neighbor(cur, d)
				if !ok || seen[n] || !g.At(n).IsCog() {
					continue
				}
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return out
}

// SpinState holds per-cell rotation and charge plus the current trigger phase.
type SpinState struct {
	Rotation []int // Degrees, accumulates in steps of 90 and is never wrapped
	Charge   []int
	Phase    Direction
}

// NewSpinState returns a zeroed state for n cells.
func NewSpinState(n int) *SpinState {
	return &SpinState{Rotation: make([]int, n), Charge: make([]int, n), Phase: Down}
}

// Reset zeroes rotation and charge and rewinds the phase to Down.
func (s *SpinState) Reset() {
	for i := range s.Rotation {
		s.Rotation[i] = 0
	}
	for i := range s.Charge {
		s.Charge[i] = 0
	}
	s.Phase = Down
}

// Clone returns a deep copy.
func (s *SpinState) Clone() *SpinState {
	c := &SpinState{Rotation: make([]int, len(s.Rotation)), Charge: make([]int, len(s.Charge)), Phase: s.Phase}
	copy(c.Rotation, s.Rotation)
	copy(c.Charge, s.Charge)
	return c
}

// Step runs one propagation phase and advances to the next phase. It returns
// the sprites of the units whose pieces wrapped their charge this phase.
func (s *SpinState) Step(g *Grid, pieces models.PieceTable) []models.Sprite {
	phase := s.Phase
	s.Phase = phase.Next()

	rotating := RotatingSet(g, phase)
	if len(rotating) == 0 {
		return nil
	}

	var spawns []models.Sprite
	for _, i := range rotating {
		s.Rotation[i] += 90
	}
	for _, i := range rotating {
		spec, ok := pieces.Lookup(g.At(i))
		if !ok || !spec.Charged() {
			continue
		}
		s.Charge[i]++
		if s.Charge[i] >= spec.Points {
			s.Charge[i] = 0
			spawns = append(spawns, spec.Sprite)
		}
	}
	return spawns
}

// ChargeRatio is the fill of cell i's charge in [0,1]; zero for uncharged pieces.
func (s *SpinState) ChargeRatio(g *Grid, pieces models.PieceTable, i int) float64 {
	spec, ok := pieces.Lookup(g.At(i))
	if !ok || !spec.Charged() {
		return 0
	}
	return float64(s.Charge[i]) / float64(spec.Points)
}
