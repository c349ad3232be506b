package flow

import "OrderFlow/entity"

// drinkSelected reports whether the recorded food type sends the flow down the drink path.
func drinkSelected(answers map[int]entity.Answer) bool {
	a, ok := answers[StepFoodType]
	if !ok {
		return false
	}
	return containsString(splitList(a.Value), FoodDrink)
}

// Reachable reports whether a step is on the path implied by the current answers.
// Before food type is answered the meal path is assumed.
func Reachable(step int, answers map[int]entity.Answer, freeOrder bool) bool {
	switch step {
	case StepAllergy, StepPreference:
		return !freeOrder && !drinkSelected(answers)
	case StepPayment:
		return !freeOrder
	case StepAddress, StepFoodType, StepBudget:
		return true
	}
	return false
}

// NextStep is the branching rule: the lowest reachable step without an answer.
// It returns StepPayment when only the payment confirmation is left, and StepDone when
// nothing is left (free orders never show the payment prompt).
func NextStep(answers map[int]entity.Answer, freeOrder bool) int {
	for step := StepAddress; step <= StepPayment; step++ {
		if !Reachable(step, answers, freeOrder) {
			continue
		}
		if _, ok := answers[step]; !ok {
			return step
		}
	}
	return StepDone
}

// Path lists the reachable steps in order.
func Path(answers map[int]entity.Answer, freeOrder bool) []int {
	path := make([]int, 0, len(Catalog))
	for step := StepAddress; step <= StepPayment; step++ {
		if Reachable(step, answers, freeOrder) {
			path = append(path, step)
		}
	}
	return path
}

// readyToSubmit reports whether every answering step on the path is done.
func readyToSubmit(next int) bool {
	return next >= StepPayment
}
