package game

import (
	"math/rand"

	"tuss-cogs/internal/models"
)

// ShopSlots is how many offers the shop shows before a wave.
const ShopSlots = 3

// Offer is a piece for sale before the next wave. Each offer can be bought once.
type Offer struct {
	Code  models.PieceCode `json:"code"`
	Price int              `json:"price"`
	Used  bool             `json:"used"`
}

// DrawOffers shuffles pool and keeps up to ShopSlots pieces. Codes without a
// definition are skipped.
func DrawOffers(pool []models.PieceCode, pieces models.PieceTable, rng *rand.Rand) []Offer {
	shuffled := make([]models.PieceCode, 0, len(pool))
	for _, c := range pool {
		if _, ok := pieces.Lookup(c); ok && c != models.PieceTrigger {
			shuffled = append(shuffled, c)
		}
	}
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > ShopSlots {
		shuffled = shuffled[:ShopSlots]
	}
	offers := make([]Offer, len(shuffled))
	for i, c := range shuffled {
		spec, _ := pieces.Lookup(c)
		offers[i] = Offer{Code: c, Price: spec.Price}
	}
	return offers
}
