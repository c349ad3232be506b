package entity

// InviteStats is the usage of a user's invite code.
type InviteStats struct {
	InviteCode           string `json:"user_invite_code"`
	CurrentUses          int    `json:"current_uses"`
	MaxUses              int    `json:"max_uses"`
	RemainingUses        int    `json:"remaining_uses"`
	EligibleForFreeDrink bool   `json:"eligible_for_free_drink"`
	FreeDrinkClaimed     bool   `json:"free_drink_claimed"`
}

// Invitation is one sign-up made with a user's invite code. Only the masked phone is kept.
type Invitation struct {
	MaskedPhone string `json:"masked_phone"`
	InvitedAt   string `json:"invited_at"`
}

type InviteProgress struct {
	Invitations []Invitation `json:"invitations"`
	Total       int          `json:"total_invitations"`
}

// InviteSummary combines the invite stats, the invite progress and the global free drink stock.
type InviteSummary struct {
	Stats               InviteStats    `json:"stats"`
	Progress            InviteProgress `json:"progress"`
	FreeDrinksRemaining int            `json:"free_drinks_remaining"`
}
