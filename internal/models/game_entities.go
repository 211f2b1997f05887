package models

// SpawnGroup describes a batch of identical enemies within a wave.
// Field names follow the level files shipped under levels/<n>/enemies.json.
type SpawnGroup struct {
	Enemy       Sprite  `json:"enemy"`
	Quantity    int     `json:"quantity"`
	SpawnDelay  float64 `json:"spawnDelay"` // Seconds between consecutive units
	Speed       float64 `json:"speed"`
	HP          float64 `json:"hp"`
	Damage      float64 `json:"damage"`
	Reach       float64 `json:"reach"`
	AttackSpeed float64 `json:"atckSpeed"` // Attacks per second
	Reward      int     `json:"reward"`    // Coins paid when the unit is killed
}

// Stats returns the combat stats carried by the group record.
func (g SpawnGroup) Stats() UnitStats {
	return UnitStats{Speed: g.Speed, HP: g.HP, Damage: g.Damage, Reach: g.Reach, AttackSpeed: g.AttackSpeed}
}

// Wave is an ordered list of spawn groups.
type Wave []SpawnGroup

// Total is the number of enemies the wave will spawn. Negative quantities count as zero.
func (w Wave) Total() int {
	n := 0
	for _, g := range w {
		if g.Quantity > 0 {
			n += g.Quantity
		}
	}
	return n
}

// Rewards is the payout schedule of a level.
type Rewards struct {
	Coins    int `json:"coins"`
	Gems     int `json:"gems"`
	Deposits int `json:"deposits"`
}

// Fraction scales every currency by completed/total, rounding down.
func (r Rewards) Fraction(completed, total int) Rewards {
	if total <= 0 || completed <= 0 {
		return Rewards{}
	}
	if completed > total {
		completed = total
	}
	return Rewards{
		Coins:    r.Coins * completed / total,
		Gems:     r.Gems * completed / total,
		Deposits: r.Deposits * completed / total,
	}
}

// LevelData is everything the engine needs to run one level.
type LevelData struct {
	Number  int     `json:"number"`
	Waves   []Wave  `json:"waves"`
	Rewards Rewards `json:"rewards"`
}

// Wave returns the 1-based wave n, or an empty wave when it is missing.
func (l LevelData) Wave(n int) Wave {
	if n < 1 || n > len(l.Waves) {
		return nil
	}
	return l.Waves[n-1]
}
