package models

// PieceCode is the value stored in a grid cell.
type PieceCode int

const (
	PieceEmpty   PieceCode = 0
	PieceTrigger PieceCode = -1
	PieceCog     PieceCode = 1   // Plain cog, transmits rotation only
	PieceMadars  PieceCode = -10 // Charged cogs spawn the unit of the same name
	PieceJanka   PieceCode = -11
	PieceRoberts PieceCode = -12
	PieceOzols   PieceCode = -13
)

// IsCog reports whether the code is a placed, non-trigger piece.
func (c PieceCode) IsCog() bool {
	return c != PieceEmpty && c != PieceTrigger
}

// Sprite identifies a unit type (and the artwork the client draws for it).
type Sprite string

const (
	SpriteMadars  Sprite = "madars"
	SpriteJanka   Sprite = "janka"
	SpriteRoberts Sprite = "roberts"
	SpriteOzols   Sprite = "ozols"
	SpriteCog     Sprite = "cog"
	SpriteTrigger Sprite = "trigger"
)

// PieceSpec defines the static properties of a piece that can sit in a grid cell.
type PieceSpec struct {
	Code   PieceCode `json:"code"`
	Sprite Sprite    `json:"sprite"` // Unit spawned when the charge wraps
	Price  int       `json:"price"`  // Coins needed to place it
	Points int       `json:"points"` // Charge threshold; 0 means the piece never spawns
}

// Charged reports whether rotating this piece accumulates charge.
func (p PieceSpec) Charged() bool {
	return p.Points > 0
}

// PieceTable maps every known cell code to its definition.
type PieceTable map[PieceCode]PieceSpec

// DefaultPieceTable returns the shipped piece definitions.
func DefaultPieceTable() PieceTable {
	return PieceTable{
		PieceTrigger: {Code: PieceTrigger, Sprite: SpriteTrigger, Price: 0},
		PieceCog:     {Code: PieceCog, Sprite: SpriteCog, Price: 10},
		PieceMadars:  {Code: PieceMadars, Sprite: SpriteMadars, Price: 12, Points: 5},
		PieceJanka:   {Code: PieceJanka, Sprite: SpriteJanka, Price: 15, Points: 6},
		PieceRoberts: {Code: PieceRoberts, Sprite: SpriteRoberts, Price: 20, Points: 7},
		PieceOzols:   {Code: PieceOzols, Sprite: SpriteOzols, Price: 40, Points: 10},
	}
}

// Lookup returns the definition for code. Empty cells have no definition.
func (t PieceTable) Lookup(code PieceCode) (PieceSpec, bool) {
	if code == PieceEmpty {
		return PieceSpec{}, false
	}
	spec, ok := t[code]
	return spec, ok
}

// UnitStats are the combat stats of a unit type.
type UnitStats struct {
	Speed       float64 `json:"speed"`     // Map units per combat tick, before scaling
	HP          float64 `json:"hp"`
	Damage      float64 `json:"damage"`
	Reach       float64 `json:"reach"`     // Half-width of the square attack box
	AttackSpeed float64 `json:"atckSpeed"` // Attacks per second
}

// StatBoost is an additive bonus applied on top of UnitStats.
type StatBoost struct {
	Speed  float64 `json:"speed,omitempty"`
	HP     float64 `json:"hp,omitempty"`
	Damage float64 `json:"damage,omitempty"`
}

// Add returns the sum of two boosts.
func (b StatBoost) Add(o StatBoost) StatBoost {
	return StatBoost{Speed: b.Speed + o.Speed, HP: b.HP + o.HP, Damage: b.Damage + o.Damage}
}

// WithBoost applies an additive boost to the stats.
func (s UnitStats) WithBoost(b StatBoost) UnitStats {
	s.Speed += b.Speed
	s.HP += b.HP
	s.Damage += b.Damage
	return s
}

// UnitStatTable maps friendly sprites to their base stats.
type UnitStatTable map[Sprite]UnitStats

// DefaultUnitStats returns base stats for every friendly unit.
func DefaultUnitStats() UnitStatTable {
	return UnitStatTable{
		SpriteMadars:  {Speed: 15, HP: 9, Damage: 3, Reach: 30, AttackSpeed: 1.5},
		SpriteJanka:   {Speed: 15, HP: 10, Damage: 4, Reach: 30, AttackSpeed: 2},
		SpriteRoberts: {Speed: 17, HP: 10, Damage: 5, Reach: 30, AttackSpeed: 1},
		SpriteOzols:   {Speed: 19, HP: 11, Damage: 6, Reach: 32, AttackSpeed: 1},
	}
}

// WaveOffers lists the pieces the shop can offer before each wave.
// Row i is used for wave i+1; waves past the end reuse the last row.
var WaveOffers = [][]PieceCode{
	{PieceMadars, PieceCog, PieceJanka},
	{PieceCog, PieceCog, PieceCog},
	{PieceCog, PieceCog, PieceCog},
	{PieceCog, PieceMadars, PieceRoberts, PieceCog, PieceJanka, PieceCog},
	{PieceCog, PieceMadars, PieceOzols, PieceOzols, PieceRoberts, PieceCog},
	{PieceCog, PieceMadars, PieceCog, PieceJanka, PieceRoberts, PieceCog},
	{PieceCog, PieceMadars, PieceCog, PieceJanka, PieceRoberts, PieceCog},
	{PieceCog, PieceMadars, PieceCog, PieceJanka, PieceRoberts, PieceCog},
	{PieceCog, PieceMadars, PieceCog, PieceJanka, PieceRoberts, PieceCog},
	{PieceCog, PieceMadars, PieceCog, PieceJanka, PieceCog, PieceCog},
}

// OfferPool returns the shop pool for a 1-based wave number.
func OfferPool(wave int) []PieceCode {
	if len(WaveOffers) == 0 {
		return nil
	}
	idx := wave - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(WaveOffers)-1 {
		idx = len(WaveOffers) - 1
	}
	return WaveOffers[idx]
}
