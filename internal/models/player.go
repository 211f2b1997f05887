package models

import (
	"errors"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMaxedOut          = errors.New("upgrade already at maximum")
	ErrLockedTier        = errors.New("upgrade tier is locked")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
)

// PlayerAccount holds information about a player that persists between sessions.
type PlayerAccount struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"` // bcrypted
	Progress       Progress  `json:"progress"`
	CreatedAt      time.Time `json:"created_at"`
}

// Character is a friendly unit type the player owns.
type Character struct {
	Name  Sprite `json:"name"`
	Level int    `json:"level"`
	XP    int    `json:"xp"`
}

// DepositUpgrade is one purchased deposit upgrade.
type DepositUpgrade struct {
	Name  string    `json:"name"`
	Boost StatBoost `json:"boost"`
}

// Progress is the currency and progression state carried between levels.
type Progress struct {
	Coins           int              `json:"coins"`
	Gems            int              `json:"gems"`
	Deposits        int              `json:"deposits"`
	CurrentLevel    int              `json:"currentLevel"`
	Characters      []Character      `json:"characters"`
	DepositUpgrades []DepositUpgrade `json:"depositUpgrades"`
}

// NewProgress returns the progress of a fresh account.
func NewProgress() Progress {
	return Progress{
		CurrentLevel: 1,
		Characters:   []Character{{Name: SpriteMadars, Level: 1, XP: 0}},
	}
}

// ShopCharacters is the order characters appear in the character shop.
var ShopCharacters = []Sprite{SpriteMadars, SpriteJanka, SpriteRoberts, SpriteOzols}

// SpriteVariants lists the artwork of each character by level.
var SpriteVariants = map[Sprite][]Sprite{
	SpriteMadars:  {"madars", "madars-2"},
	SpriteJanka:   {"janka", "janka-2"},
	SpriteRoberts: {"roberts", "roberts-2"},
	SpriteOzols:   {"ozols"},
}

// VariantFor picks the sprite variant for a character level, capped at the last variant.
func VariantFor(base Sprite, level int) Sprite {
	variants := SpriteVariants[base]
	if len(variants) == 0 {
		return base
	}
	idx := level - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(variants)-1 {
		idx = len(variants) - 1
	}
	return variants[idx]
}

// LevelBoost is the per-level bonus of a character above level 1.
var LevelBoost = StatBoost{HP: 1, Damage: 0.5}

// DepositSpec is one node of the deposit upgrade tree.
type DepositSpec struct {
	Name  string    `json:"name"`
	Price int       `json:"price"` // Base price; the n-th purchase costs Price*n
	Max   int       `json:"max"`
	Boost StatBoost `json:"boost"`
	Tier  int       `json:"tier"`
}

// DepositTree is the deposit upgrade tree in unlock order.
var DepositTree = []DepositSpec{
	{Name: "beehive", Price: 10, Max: 3, Boost: StatBoost{Speed: 1}, Tier: 1},
	{Name: "dog", Price: 15, Max: 2, Boost: StatBoost{Damage: 0.5}, Tier: 1},
	{Name: "chest", Price: 12, Max: 3, Boost: StatBoost{Damage: 0.5}, Tier: 1},
	{Name: "nuts", Price: 20, Max: 3, Boost: StatBoost{Damage: 1}, Tier: 2},
	{Name: "potion", Price: 15, Max: 3, Boost: StatBoost{HP: 1}, Tier: 3},
	{Name: "bandage", Price: 20, Max: 3, Boost: StatBoost{HP: 1}, Tier: 3},
	{Name: "apple", Price: 40, Max: 2, Boost: StatBoost{HP: 1, Damage: 1}, Tier: 4},
}

// Character returns the owned character with the given name.
func (p *Progress) Character(name Sprite) (*Character, bool) {
	for i := range p.Characters {
		if p.Characters[i].Name == name {
			return &p.Characters[i], true
		}
	}
	return nil, false
}

// CharacterPrice is the coin price of the next purchase of a shop character.
func (p *Progress) CharacterPrice(name Sprite) (int, bool) {
	for i, s := range ShopCharacters {
		if s != name {
			continue
		}
		xp := 1
		if c, ok := p.Character(name); ok && c.XP > 0 {
			xp = c.XP
		}
		return xp*8 + 8*(i+1), true
	}
	return 0, false
}

// BuyCharacter unlocks a character or adds one xp to it. A character levels up
// when its xp would reach level*4, and its xp starts over.
func (p *Progress) BuyCharacter(name Sprite) (Character, error) {
	price, ok := p.CharacterPrice(name)
	if !ok {
		return Character{}, ErrUnknownUpgrade
	}
	if p.Coins < price {
		return Character{}, ErrInsufficientFunds
	}
	p.Coins -= price

	c, owned := p.Character(name)
	if !owned {
		p.Characters = append(p.Characters, Character{Name: name, Level: 1, XP: 0})
		return p.Characters[len(p.Characters)-1], nil
	}
	if c.Level*4-(c.XP+1) <= 0 {
		c.Level++
		c.XP = 0
	} else {
		c.XP++
	}
	return *c, nil
}

func (p *Progress) depositCount(name string) int {
	n := 0
	for _, u := range p.DepositUpgrades {
		if u.Name == name {
			n++
		}
	}
	return n
}

// UnlockedDepositTier is the tier of the first tree node that is not maxed out.
func (p *Progress) UnlockedDepositTier() int {
	for _, d := range DepositTree {
		if p.depositCount(d.Name) < d.Max {
			return d.Tier
		}
	}
	return 1
}

// DepositPrice is the deposit cost of the next purchase of the named upgrade.
func (p *Progress) DepositPrice(name string) (int, bool) {
	for _, d := range DepositTree {
		if d.Name == name {
			return d.Price * (p.depositCount(name) + 1), true
		}
	}
	return 0, false
}

// BuyDeposit purchases one level of a deposit upgrade.
func (p *Progress) BuyDeposit(name string) (DepositUpgrade, error) {
	var spec *DepositSpec
	for i := range DepositTree {
		if DepositTree[i].Name == name {
			spec = &DepositTree[i]
			break
		}
	}
	if spec == nil {
		return DepositUpgrade{}, ErrUnknownUpgrade
	}
	if spec.Tier > p.UnlockedDepositTier() {
		return DepositUpgrade{}, ErrLockedTier
	}
	if p.depositCount(name) >= spec.Max {
		return DepositUpgrade{}, ErrMaxedOut
	}
	price, _ := p.DepositPrice(name)
	if p.Deposits < price {
		return DepositUpgrade{}, ErrInsufficientFunds
	}
	p.Deposits -= price
	u := DepositUpgrade{Name: spec.Name, Boost: spec.Boost}
	p.DepositUpgrades = append(p.DepositUpgrades, u)
	return u, nil
}

// Boosts returns the additive stat bonus for spawned units of each owned character.
// Deposit upgrades apply to every character.
func (p *Progress) Boosts() map[Sprite]StatBoost {
	var shared StatBoost
	for _, u := range p.DepositUpgrades {
		shared = shared.Add(u.Boost)
	}
	out := make(map[Sprite]StatBoost, len(ShopCharacters))
	for _, s := range ShopCharacters {
		b := shared
		if c, ok := p.Character(s); ok && c.Level > 1 {
			lv := float64(c.Level - 1)
			b = b.Add(StatBoost{Speed: LevelBoost.Speed * lv, HP: LevelBoost.HP * lv, Damage: LevelBoost.Damage * lv})
		}
		out[s] = b
	}
	return out
}

// Variants returns the sprite variant to draw for each character.
func (p *Progress) Variants() map[Sprite]Sprite {
	out := make(map[Sprite]Sprite, len(ShopCharacters))
	for _, s := range ShopCharacters {
		level := 1
		if c, ok := p.Character(s); ok {
			level = c.Level
		}
		out[s] = VariantFor(s, level)
	}
	return out
}

// Credit adds a payout to the balances.
func (p *Progress) Credit(r Rewards) {
	p.Coins += r.Coins
	p.Gems += r.Gems
	p.Deposits += r.Deposits
}
