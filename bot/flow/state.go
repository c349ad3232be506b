package flow

import (
	"OrderFlow/entity"
	"time"
)

// Phase is the state of a flow instance.
type Phase string

const (
	PhaseAuthenticating Phase = "authenticating"
	PhaseAnswering      Phase = "answering"
	PhaseEditing        Phase = "editing"
	PhaseSubmitting     Phase = "submitting"
	PhaseSearching      Phase = "searching"
	PhaseCompleted      Phase = "completed"
)

// FlowState is the position of the flow. EditingStep is set only in PhaseEditing.
type FlowState struct {
	Phase          Phase          `json:"phase" bson:"phase"`
	CurrentStep    int            `json:"current_step" bson:"current_step"`
	EditingStep    *int           `json:"editing_step" bson:"editing_step"`
	OriginalAnswer *entity.Answer `json:"original_answer" bson:"original_answer"`
	FreeOrder      bool           `json:"free_order" bson:"free_order"`
}

// Snapshot is the persisted projection of a flow, keyed by user id.
type Snapshot struct {
	UserID    string              `json:"user_id" bson:"user_id"`
	Phone     string              `json:"phone" bson:"phone"`
	State     FlowState           `json:"state" bson:"state"`
	Answers   []entity.StepAnswer `json:"answers" bson:"answers"`
	Fields    Fields              `json:"fields" bson:"fields"`
	Order     *entity.OrderRef    `json:"order" bson:"order"`
	LastError string              `json:"last_error" bson:"last_error"`
	SavedAt   time.Time           `json:"saved_at" bson:"saved_at"`
}

// View is the read-only projection handed to renderers.
type View struct {
	UserID          string            `json:"user_id"`
	Phase           Phase             `json:"phase"`
	ActiveStepIndex int               `json:"active_step_index"`
	PromptText      string            `json:"prompt_text"`
	Kind            entity.AnswerKind `json:"kind,omitempty"`
	Options         []Option          `json:"options,omitempty"`
	IsEditing       bool              `json:"is_editing"`
	CanProceed      bool              `json:"can_proceed"`
	Animate         bool              `json:"animate"`
	FreeOrder       bool              `json:"free_order"`
	Path            []int             `json:"path"`
	Answers         []AnsweredStep    `json:"answers"`
	Fields          Fields            `json:"fields"`
	OrderNumber     string            `json:"order_number,omitempty"`
	Error           string            `json:"error,omitempty"`
	// set only on the reply to a free drink claim
	FreeDrinksRemaining *int `json:"free_drinks_remaining,omitempty"`
}

// AnsweredStep is a completed question as shown to the user.
type AnsweredStep struct {
	Step     int           `json:"step"`
	Question string        `json:"question"`
	Answer   entity.Answer `json:"answer"`
	Display  string        `json:"display"`
}
