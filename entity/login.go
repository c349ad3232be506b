package entity

import "time"

// LoginResult is returned by a successful verification. NeedInvite is set for a new
// phone number that has to be activated with an invite code first; no token is issued.
type LoginResult struct {
	Token      string    `json:"token,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Phone      string    `json:"phone_number"`
	IsNewUser  bool      `json:"is_new_user"`
	NeedInvite bool      `json:"need_invite"`
}
