package flow

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/validate"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinAddressLength = 5
	MinBudget        = 10
)

// ValidationError is a user-correctable rejection of a step value.
type ValidationError struct {
	Kind   entity.AnswerKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

// Validate checks a candidate answer value for a step kind.
func Validate(kind entity.AnswerKind, value string) error {
	switch kind {
	case entity.KindAddress:
		if validate.Var(strings.TrimSpace(value), fmt.Sprintf("min=%d", MinAddressLength)) != nil {
			return &ValidationError{Kind: kind, Reason: fmt.Sprintf("地址至少需要%d个字", MinAddressLength)}
		}
	case entity.KindFoodType:
		if validate.Var(strings.TrimSpace(value), "required") != nil {
			return &ValidationError{Kind: kind, Reason: "请选择食物类型"}
		}
	case entity.KindAllergy, entity.KindPreference:
		// empty means no restriction
	case entity.KindBudget:
		amount, err := ParseBudget(value)
		if err != nil {
			return &ValidationError{Kind: kind, Reason: "请输入有效的金额"}
		}
		if validate.Var(amount, fmt.Sprintf("gte=%d", MinBudget)) != nil {
			return &ValidationError{Kind: kind, Reason: fmt.Sprintf("预算不能少于%d元", MinBudget)}
		}
	case entity.KindPhone:
		if !validate.Phone(value) {
			return &ValidationError{Kind: kind, Reason: "请输入正确的手机号"}
		}
	case entity.KindPayment:
	default:
		return &ValidationError{Kind: kind, Reason: "unknown step kind"}
	}
	return nil
}

// ParseBudget parses a non-negative amount written as plain decimal digits,
// the same form the order request accepts.
func ParseBudget(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if err := validate.Var(value, "required,numeric"); err != nil {
		return 0, fmt.Errorf("budget is not a plain number: %q", value)
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, fmt.Errorf("budget out of range: %q", value)
	}
	return amount, nil
}
