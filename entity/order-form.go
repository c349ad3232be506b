package entity

const FreeOrderTypeInvite = "invite_reward"

// OrderForm is the questionnaire result sent to the order backend.
type OrderForm struct {
	Address       string   `json:"address" validate:"required,min=5"`
	Allergies     []string `json:"allergies"`
	Preferences   []string `json:"preferences"`
	Budget        string   `json:"budget" validate:"required,numeric"`
	FoodType      []string `json:"foodType" validate:"required,min=1"`
	IsFreeOrder   bool     `json:"isFreeOrder"`
	FreeOrderType string   `json:"freeOrderType,omitempty"`
}

type OrderRequest struct {
	UserID      string    `json:"user_id" validate:"required"`
	PhoneNumber string    `json:"phone_number" validate:"required"`
	Form        OrderForm `json:"form_data"`
}

// OrderRef tracks an order created for a particular answer set.
type OrderRef struct {
	OrderID      string `json:"order_id" bson:"order_id"`
	OrderNumber  string `json:"order_number" bson:"order_number"`
	UserSequence int    `json:"user_sequence" bson:"user_sequence"`
	Fingerprint  string `json:"fingerprint" bson:"fingerprint"`
	Submitted    bool   `json:"submitted" bson:"submitted"`
}
