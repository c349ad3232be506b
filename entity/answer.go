package entity

// AnswerKind is the input kind a step collects.
type AnswerKind string

const (
	KindAddress    AnswerKind = "address"
	KindPhone      AnswerKind = "phone"
	KindBudget     AnswerKind = "budget"
	KindAllergy    AnswerKind = "allergy"
	KindPreference AnswerKind = "preference"
	KindFoodType   AnswerKind = "foodType"
	KindPayment    AnswerKind = "payment"
)

// Answer is an accepted answer for one step. It is replaced wholesale, never mutated.
type Answer struct {
	Kind  AnswerKind `json:"kind" bson:"kind"`
	Value string     `json:"value" bson:"value"`
}

// StepAnswer pairs an answer with the step index it was given for.
type StepAnswer struct {
	Step   int    `json:"step" bson:"step"`
	Answer Answer `json:"answer" bson:"answer"`
}
