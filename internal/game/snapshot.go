package game

import "tuss-cogs/internal/models"

// CellView is the visible state of one grid cell.
type CellView struct {
	Code     models.PieceCode `json:"code"`
	Rotation int              `json:"rotation"`
	Charge   float64          `json:"charge"` // 0..1
}

// Snapshot is a read-only copy of everything a client draws.
type Snapshot struct {
	State            State      `json:"state"`
	Level            int        `json:"level"`
	Wave             int        `json:"wave"`
	TotalWaves       int        `json:"totalWaves"`
	EnemiesRemaining int        `json:"enemiesRemaining"`
	BaseHP           int        `json:"baseHp"`
	MaxBaseHP        int        `json:"maxBaseHp"`
	Coins            int        `json:"coins"`
	Phase            string     `json:"phase"`
	Columns          int        `json:"columns"`
	Cells            []CellView `json:"cells"`
	Offers           []Offer    `json:"offers"`
	Friends          []Unit     `json:"friends"`
	Enemies          []Unit     `json:"enemies"`
	Outcome          *Outcome   `json:"outcome,omitempty"`
}

// Snapshot copies the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	cells := make([]CellView, e.grid.Len())
	for i := range cells {
		cells[i] = CellView{
			Code:     e.grid.At(i),
			Rotation: e.spin.Rotation[i],
			Charge:   e.spin.ChargeRatio(e.grid, e.pieces, i),
		}
	}
	offers := make([]Offer, len(e.offers))
	copy(offers, e.offers)

	s := Snapshot{
		State:            e.state,
		Level:            e.level.Number,
		Wave:             e.wave,
		TotalWaves:       len(e.level.Waves),
		EnemiesRemaining: e.remaining,
		BaseHP:           e.baseHP,
		MaxBaseHP:        e.settings.BaseHP,
		Coins:            e.coins,
		Phase:            e.spin.Phase.String(),
		Columns:          e.grid.Cols(),
		Cells:            cells,
		Offers:           offers,
		Friends:          e.friends.Units(),
		Enemies:          e.enemies.Units(),
	}
	if e.outcome != nil {
		o := *e.outcome
		s.Outcome = &o
	}
	return s
}
