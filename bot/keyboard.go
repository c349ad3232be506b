package bot

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const selectedMark = "✅ "

// ContactRequestKeyboard creates a reply keyboard with a contact request button.
func ContactRequestKeyboard(buttonText string) tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		Keyboard: [][]tgbotapi.KeyboardButton{
			{
				{Text: buttonText, RequestContact: true},
			},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

// RemoveKeyboard creates a remove keyboard markup to hide custom keyboards.
func RemoveKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.ReplyKeyboardRemove{
		RemoveKeyboard: true,
	}
}

// QuestionKeyboard builds the inline keyboard of the active question.
func QuestionKeyboard(view flow.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch view.Phase {
	case flow.PhaseAnswering, flow.PhaseEditing:
		rows = append(rows, answerRows(view)...)
	case flow.PhaseSubmitting:
		if !view.FreeOrder {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				{Text: "💳 已支付，提交订单", CallbackData: BuildCallback(ActionSubmit)},
			})
		}
	default:
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}

	if view.IsEditing {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			{Text: "↩️ 取消修改", CallbackData: BuildCallback(ActionCancel)},
		})
	} else {
		rows = append(rows, editRows(view)...)
		if !view.FreeOrder {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				{Text: "🎁 领取免单奶茶", CallbackData: BuildCallback(ActionFree)},
			})
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func answerRows(view flow.View) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	step := view.ActiveStepIndex

	switch view.Kind {
	case entity.KindFoodType, entity.KindAllergy, entity.KindPreference:
		if view.FreeOrder && view.Kind == entity.KindFoodType {
			break
		}
		fields := view.Fields
		selected := fields.Input(step).Options
		for _, o := range view.Options {
			label := o.Label
			if contains(selected, o.ID) {
				label = selectedMark + label
			}
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				{Text: label, CallbackData: optionCallback(step, o.ID)},
			})
		}
	case entity.KindBudget:
		if view.FreeOrder {
			break
		}
		var row []tgbotapi.InlineKeyboardButton
		drink := false
		for _, a := range view.Answers {
			if a.Answer.Kind == entity.KindFoodType && strings.Contains(a.Answer.Value, flow.FoodDrink) {
				drink = true
			}
		}
		for _, amount := range flow.BudgetOptions(drink) {
			label := "¥" + amount
			if view.Fields.Budget == amount {
				label = selectedMark + label
			}
			row = append(row, tgbotapi.InlineKeyboardButton{Text: label, CallbackData: BuildCallback(ActionBudget, amount)})
		}
		rows = append(rows, row)
	}

	if view.CanProceed && view.Kind != entity.KindAddress && view.Kind != entity.KindBudget {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			{Text: "👉 下一步", CallbackData: BuildCallback(ActionDone, strconv.Itoa(step))},
		})
	}
	return rows
}

// editRows lists the answered questions that can be reopened.
func editRows(view flow.View) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, a := range view.Answers {
		if a.Step < flow.StepAddress {
			continue
		}
		if view.FreeOrder && (a.Step == flow.StepFoodType || a.Step == flow.StepBudget) {
			continue
		}
		def, ok := flow.Definition(a.Step)
		if !ok {
			continue
		}
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         "✏️ " + def.Title,
			CallbackData: BuildCallback(ActionEdit, strconv.Itoa(a.Step)),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// FormatView renders the answered questions and the active prompt as message text.
func FormatView(view flow.View) string {
	var sb strings.Builder
	for _, a := range view.Answers {
		if a.Step < flow.StepAddress {
			continue
		}
		if view.IsEditing && a.Step == view.ActiveStepIndex {
			continue
		}
		title := a.Question
		if def, ok := flow.Definition(a.Step); ok {
			title = def.Title
		}
		sb.WriteString(fmt.Sprintf("%s%s: %s\n", selectedMark, title, a.Display))
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}

	if view.IsEditing {
		sb.WriteString("✏️ ")
	}
	sb.WriteString(view.PromptText)
	if view.Phase == flow.PhaseCompleted && view.OrderNumber != "" {
		sb.WriteString("\n订单号: " + view.OrderNumber)
	}
	if view.Error != "" {
		sb.WriteString("\n\n⚠️ " + view.Error)
	}
	return sb.String()
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
