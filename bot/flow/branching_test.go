package flow

import (
	"OrderFlow/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func answersUpTo(foodType string, steps ...int) map[int]entity.Answer {
	values := map[int]entity.Answer{
		StepPhone:      {Kind: entity.KindPhone, Value: "13800138000"},
		StepAddress:    {Kind: entity.KindAddress, Value: "上海市浦东新区某路123号"},
		StepFoodType:   {Kind: entity.KindFoodType, Value: foodType},
		StepAllergy:    {Kind: entity.KindAllergy, Value: ""},
		StepPreference: {Kind: entity.KindPreference, Value: "spicy"},
		StepBudget:     {Kind: entity.KindBudget, Value: "30"},
		StepPayment:    {Kind: entity.KindPayment, Value: paymentConfirmValue},
	}
	out := map[int]entity.Answer{StepPhone: values[StepPhone]}
	for _, s := range steps {
		out[s] = values[s]
	}
	return out
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name    string
		answers map[int]entity.Answer
		free    bool
		want    int
	}{
		{"fresh", answersUpTo(FoodMeal), false, StepAddress},
		{"after address", answersUpTo(FoodMeal, StepAddress), false, StepFoodType},
		{"meal goes to allergy", answersUpTo(FoodMeal, StepAddress, StepFoodType), false, StepAllergy},
		{"drink skips to budget", answersUpTo(FoodDrink, StepAddress, StepFoodType), false, StepBudget},
		{"both selected counts as drink", answersUpTo("meal,drink", StepAddress, StepFoodType), false, StepBudget},
		{"meal after allergy", answersUpTo(FoodMeal, StepAddress, StepFoodType, StepAllergy), false, StepPreference},
		{"meal after preference", answersUpTo(FoodMeal, StepAddress, StepFoodType, StepAllergy, StepPreference), false, StepBudget},
		{"meal complete asks payment", answersUpTo(FoodMeal, StepAddress, StepFoodType, StepAllergy, StepPreference, StepBudget), false, StepPayment},
		{"drink complete asks payment", answersUpTo(FoodDrink, StepAddress, StepFoodType, StepBudget), false, StepPayment},
		{"paid is done", answersUpTo(FoodDrink, StepAddress, StepFoodType, StepBudget, StepPayment), false, StepDone},
		{"gap on meal path is found", answersUpTo(FoodMeal, StepAddress, StepFoodType, StepPreference, StepBudget), false, StepAllergy},
		{"free after food type", answersUpTo(FoodDrink, StepAddress, StepFoodType), true, StepBudget},
		{"free complete skips payment", answersUpTo(FoodDrink, StepAddress, StepFoodType, StepBudget), true, StepDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStep(tt.answers, tt.free))
		})
	}
}

func TestPath(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, Path(answersUpTo(FoodMeal, StepFoodType), false))
	assert.Equal(t, []int{0, 1, 4, 5}, Path(answersUpTo(FoodDrink, StepFoodType), false))
	assert.Equal(t, []int{0, 1, 4}, Path(answersUpTo(FoodDrink, StepFoodType), true))
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, budgetDrinkPrompt, Prompt(StepBudget, true, false))
	assert.Equal(t, budgetMealPrompt, Prompt(StepBudget, false, false))
	assert.Equal(t, freeFoodTypePrompt, Prompt(StepFoodType, true, true))
	assert.Equal(t, freePaymentPrompt, Prompt(StepPayment, true, true))
	assert.Equal(t, Catalog[StepAddress].Message, Prompt(StepAddress, false, true))
	assert.Equal(t, "", Prompt(StepDone, false, false))
}
