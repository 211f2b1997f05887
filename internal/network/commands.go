package network

import "tuss-cogs/internal/models"

// Client to server message types, sent over the game websocket.
const (
	MsgTypePlacePiece  = "place_piece"
	MsgTypePlaceOffer  = "place_offer"
	MsgTypeRemovePiece = "remove_piece"
	MsgTypeStart       = "start"
	MsgTypeQuit        = "quit"
)

// ClientMessage is the envelope of every command a client sends.
type ClientMessage struct {
	Type    string     `json:"type"`
	Payload RawPayload `json:"payload,omitempty"`
}

// PlacePieceCommand puts a piece from the piece table on a cell.
type PlacePieceCommand struct {
	Cell int              `json:"cell"`
	Code models.PieceCode `json:"code"`
}

// PlaceOfferCommand buys a shop offer and places it on a cell.
type PlaceOfferCommand struct {
	Slot int `json:"slot"`
	Cell int `json:"cell"`
}

// RemovePieceCommand clears a cell.
type RemovePieceCommand struct {
	Cell int `json:"cell"`
}

// HTTP bodies

// LoginRequest is the body of /preauth/register and /preauth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expires_at"`
	Player    *PlayerProfile `json:"player,omitempty"`
}

// PlayerProfile is the public view of an account with its shop prices.
type PlayerProfile struct {
	ID              string                             `json:"id"`
	Username        string                             `json:"username"`
	Progress        models.Progress                    `json:"progress"`
	Boosts          map[models.Sprite]models.StatBoost `json:"boosts"`
	CharacterPrices map[models.Sprite]int              `json:"characterPrices"`
	DepositPrices   map[string]int                     `json:"depositPrices"`
	UnlockedTier    int                                `json:"unlockedTier"`
}

// NewPlayerProfile builds the profile of acc. The password hash is left out.
func NewPlayerProfile(acc *models.PlayerAccount) *PlayerProfile {
	p := &acc.Progress
	profile := &PlayerProfile{
		ID:              acc.ID,
		Username:        acc.Username,
		Progress:        acc.Progress,
		Boosts:          p.Boosts(),
		CharacterPrices: make(map[models.Sprite]int, len(models.ShopCharacters)),
		DepositPrices:   make(map[string]int, len(models.DepositTree)),
		UnlockedTier:    p.UnlockedDepositTier(),
	}
	for _, s := range models.ShopCharacters {
		if price, ok := p.CharacterPrice(s); ok {
			profile.CharacterPrices[s] = price
		}
	}
	for _, d := range models.DepositTree {
		if price, ok := p.DepositPrice(d.Name); ok {
			profile.DepositPrices[d.Name] = price
		}
	}
	return profile
}

// SessionCreated is the data of POST /auth/game/session.
type SessionCreated struct {
	SessionID string `json:"session_id"`
	Level     int    `json:"level"`
}
