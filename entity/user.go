package entity

import "time"

// User is a registered customer. TelegramId links a chat to the account.
type User struct {
	UserID       string    `json:"user_id" bson:"user_id" validate:"required"`
	Phone        string    `json:"phone" bson:"phone" validate:"required,cnphone"`
	TelegramId   int64     `json:"telegram_id" bson:"telegram_id" validate:"omitempty"`
	UserSequence int       `json:"user_sequence" bson:"user_sequence" validate:"omitempty"`
	LastSeen     time.Time `json:"last_seen" bson:"lastSeen"`
}

func UserFromAuth(res AuthResult) User {
	return User{
		UserID:       res.UserID,
		Phone:        res.PhoneNumber,
		UserSequence: res.UserSequence,
	}
}
