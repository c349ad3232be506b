package flow

import (
	"OrderFlow/entity"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		kind  entity.AnswerKind
		value string
		ok    bool
	}{
		{"address long enough", entity.KindAddress, "上海市浦东新区某路123号", true},
		{"address exactly five", entity.KindAddress, "  abcde  ", true},
		{"address too short after trim", entity.KindAddress, "  abcd ", false},
		{"address empty", entity.KindAddress, "", false},
		{"food type meal", entity.KindFoodType, FoodMeal, true},
		{"food type empty", entity.KindFoodType, " ", false},
		{"allergy empty", entity.KindAllergy, "", true},
		{"preference anything", entity.KindPreference, "spicy,other-preference:不要香菜", true},
		{"budget threshold", entity.KindBudget, "10", true},
		{"budget decimal", entity.KindBudget, "30.5", true},
		{"budget below threshold", entity.KindBudget, "9.99", false},
		{"budget zero", entity.KindBudget, "0", false},
		{"budget negative", entity.KindBudget, "-20", false},
		{"budget not a number", entity.KindBudget, "thirty", false},
		{"budget NaN", entity.KindBudget, "NaN", false},
		{"budget Inf", entity.KindBudget, "+Inf", false},
		{"budget trailing dot", entity.KindBudget, "30.", false},
		{"budget exponent", entity.KindBudget, "1e2", false},
		{"budget leading dot", entity.KindBudget, ".5", false},
		{"budget hex", entity.KindBudget, "0x20", false},
		{"budget with spaces", entity.KindBudget, " 30 ", true},
		{"phone", entity.KindPhone, "13800138000", true},
		{"phone bad", entity.KindPhone, "1380013800", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.kind, tt.value)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.kind, ve.Kind)
			assert.NotEmpty(t, ve.Reason)
		})
	}
}

func TestParseBudget(t *testing.T) {
	v, err := ParseBudget(" 0 ")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = ParseBudget("+12.50")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	for _, bad := range []string{"-1", "30.", "1e2", "", "Inf"} {
		_, err = ParseBudget(bad)
		assert.Errorf(t, err, "budget %q", bad)
	}
}
