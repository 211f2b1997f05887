package models

import (
	"errors"
	"testing"
)

func TestRewardsFractionRoundsDown(t *testing.T) {
	r := Rewards{Coins: 25, Gems: 3, Deposits: 7}
	got := r.Fraction(1, 3)
	want := Rewards{Coins: 8, Gems: 1, Deposits: 2}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if zero := r.Fraction(0, 3); zero != (Rewards{}) {
		t.Fatalf("expected zero payout with no completed waves, got %+v", zero)
	}
	if none := r.Fraction(2, 0); none != (Rewards{}) {
		t.Fatalf("expected zero payout for a level without waves, got %+v", none)
	}
}

func TestBuyCharacterLevelsUpAfterFourPurchases(t *testing.T) {
	p := NewProgress()
	p.Coins = 1000

	prices := []int{16, 16, 24, 32}
	for i, want := range prices {
		price, _ := p.CharacterPrice(SpriteMadars)
		if price != want {
			t.Fatalf("purchase %d: expected price %d, got %d", i, want, price)
		}
		if _, err := p.BuyCharacter(SpriteMadars); err != nil {
			t.Fatalf("purchase %d: unexpected error: %v", i, err)
		}
	}
	c, _ := p.Character(SpriteMadars)
	if c.Level != 2 || c.XP != 0 {
		t.Fatalf("expected level 2 with 0 xp, got level %d xp %d", c.Level, c.XP)
	}
	if p.Coins != 1000-16-16-24-32 {
		t.Fatalf("expected coins to be charged, got %d", p.Coins)
	}
	if v := p.Variants()[SpriteMadars]; v != "madars-2" {
		t.Fatalf("expected upgraded sprite variant, got %q", v)
	}
}

func TestBuyCharacterUnlocksNewCharacter(t *testing.T) {
	p := NewProgress()
	p.Coins = 10
	if _, err := p.BuyCharacter(SpriteOzols); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	p.Coins = 40
	c, err := p.BuyCharacter(SpriteOzols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != SpriteOzols || c.Level != 1 {
		t.Fatalf("expected ozols at level 1, got %+v", c)
	}
	if p.Coins != 0 {
		t.Fatalf("expected price 40 to be charged, got %d coins left", p.Coins)
	}
}

func TestBuyDepositRespectsTiersAndMax(t *testing.T) {
	p := NewProgress()
	p.Deposits = 10000

	if _, err := p.BuyDeposit("nuts"); !errors.Is(err, ErrLockedTier) {
		t.Fatalf("expected ErrLockedTier for tier 2 upgrade, got %v", err)
	}
	for _, name := range []string{"beehive", "beehive", "beehive", "dog", "dog", "chest", "chest", "chest"} {
		if _, err := p.BuyDeposit(name); err != nil {
			t.Fatalf("buying %s: unexpected error: %v", name, err)
		}
	}
	if _, err := p.BuyDeposit("dog"); !errors.Is(err, ErrMaxedOut) {
		t.Fatalf("expected ErrMaxedOut, got %v", err)
	}
	if tier := p.UnlockedDepositTier(); tier != 2 {
		t.Fatalf("expected tier 2 unlocked, got %d", tier)
	}
	price, _ := p.DepositPrice("nuts")
	if price != 20 {
		t.Fatalf("expected first nuts purchase to cost 20, got %d", price)
	}
	if _, err := p.BuyDeposit("nuts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price, _ = p.DepositPrice("nuts"); price != 40 {
		t.Fatalf("expected second nuts purchase to cost 40, got %d", price)
	}
}

func TestBoostsAddDepositsAndCharacterLevel(t *testing.T) {
	p := NewProgress()
	p.Characters[0].Level = 3
	p.DepositUpgrades = []DepositUpgrade{
		{Name: "beehive", Boost: StatBoost{Speed: 1}},
		{Name: "chest", Boost: StatBoost{Damage: 0.5}},
	}
	b := p.Boosts()
	want := StatBoost{Speed: 1, HP: 2, Damage: 1.5}
	if b[SpriteMadars] != want {
		t.Fatalf("expected %+v, got %+v", want, b[SpriteMadars])
	}
	if got := b[SpriteJanka]; got != (StatBoost{Speed: 1, Damage: 0.5}) {
		t.Fatalf("expected only deposit boosts for unowned janka, got %+v", got)
	}

	stats := DefaultUnitStats()[SpriteMadars].WithBoost(b[SpriteMadars])
	if stats.HP != 11 || stats.Damage != 4.5 || stats.Speed != 16 {
		t.Fatalf("unexpected boosted stats %+v", stats)
	}
}

func TestOfferPoolClampsToLastRow(t *testing.T) {
	if got := OfferPool(1); len(got) != 3 || got[0] != PieceMadars {
		t.Fatalf("unexpected first wave pool %v", got)
	}
	last := WaveOffers[len(WaveOffers)-1]
	got := OfferPool(99)
	if len(got) != len(last) {
		t.Fatalf("expected last row for late waves, got %v", got)
	}
	if got := OfferPool(0); got[0] != WaveOffers[0][0] {
		t.Fatalf("expected first row for wave 0, got %v", got)
	}
}

func TestPieceTableLookup(t *testing.T) {
	pieces := DefaultPieceTable()
	if _, ok := pieces.Lookup(PieceEmpty); ok {
		t.Fatalf("empty cells must have no definition")
	}
	spec, ok := pieces.Lookup(PieceOzols)
	if !ok || spec.Points != 10 || spec.Price != 40 || spec.Sprite != SpriteOzols {
		t.Fatalf("unexpected ozols definition %+v", spec)
	}
	if trig, _ := pieces.Lookup(PieceTrigger); trig.Charged() {
		t.Fatalf("trigger must not accumulate charge")
	}
}
