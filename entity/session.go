package entity

import "time"

// AuthResult is delivered by the phone verification backend.
type AuthResult struct {
	UserID       string `json:"user_id"`
	PhoneNumber  string `json:"phone_number"`
	IsNewUser    bool   `json:"is_new_user"`
	UserSequence int    `json:"user_sequence,omitempty"`
}

// Session is the authenticated caller, restored from a session token.
type Session struct {
	UserID    string    `json:"user_id"`
	Phone     string    `json:"phone"`
	IsNewUser bool      `json:"is_new_user"`
	ExpiresAt time.Time `json:"expires_at"`
}
