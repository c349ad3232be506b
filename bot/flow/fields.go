package flow

import (
	"OrderFlow/entity"
	"strings"
)

// Input is what a renderer sends for a step: free text, selected options or both.
type Input struct {
	Text    string   `json:"text,omitempty"`
	Options []string `json:"options,omitempty"`
	Other   string   `json:"other,omitempty"`
}

// Fields are the raw input buffers of the questionnaire.
type Fields struct {
	Address          string   `json:"address" bson:"address"`
	AddressConfirmed bool     `json:"address_confirmed" bson:"address_confirmed"`
	FoodType         []string `json:"food_type" bson:"food_type"`
	Allergies        []string `json:"allergies" bson:"allergies"`
	OtherAllergy     string   `json:"other_allergy" bson:"other_allergy"`
	Preferences      []string `json:"preferences" bson:"preferences"`
	OtherPreference  string   `json:"other_preference" bson:"other_preference"`
	Budget           string   `json:"budget" bson:"budget"`
}

const listSeparator = ","

// apply writes an input into the buffers of a step.
func (f *Fields) apply(step int, in Input) {
	switch step {
	case StepAddress:
		f.Address = in.Text
	case StepFoodType:
		f.FoodType = cloneStrings(in.Options)
	case StepAllergy:
		f.Allergies = cloneStrings(in.Options)
		f.OtherAllergy = in.Other
	case StepPreference:
		f.Preferences = cloneStrings(in.Options)
		f.OtherPreference = in.Other
	case StepBudget:
		f.Budget = in.Text
	}
}

// Input reads the buffers of a step back as an Input.
func (f *Fields) Input(step int) Input {
	switch step {
	case StepAddress:
		return Input{Text: f.Address}
	case StepFoodType:
		return Input{Options: cloneStrings(f.FoodType)}
	case StepAllergy:
		return Input{Options: cloneStrings(f.Allergies), Other: f.OtherAllergy}
	case StepPreference:
		return Input{Options: cloneStrings(f.Preferences), Other: f.OtherPreference}
	case StepBudget:
		return Input{Text: f.Budget}
	}
	return Input{}
}

// clear empties the buffers of a step.
func (f *Fields) clear(step int) {
	switch step {
	case StepAddress:
		f.Address = ""
		f.AddressConfirmed = false
	default:
		f.apply(step, Input{})
	}
}

// hasInput reports whether the user already typed or picked something for a step.
func (f *Fields) hasInput(step int) bool {
	switch step {
	case StepAddress:
		return strings.TrimSpace(f.Address) != ""
	case StepFoodType:
		return len(f.FoodType) > 0
	case StepAllergy:
		return len(f.Allergies) > 0
	case StepPreference:
		return len(f.Preferences) > 0
	case StepBudget:
		return strings.TrimSpace(f.Budget) != ""
	}
	return false
}

// restore fills the buffers of a step from its stored answer.
func (f *Fields) restore(step int, a entity.Answer) {
	switch a.Kind {
	case entity.KindAddress:
		f.Address = a.Value
	case entity.KindFoodType:
		f.FoodType = splitList(a.Value)
	case entity.KindAllergy:
		f.Allergies, f.OtherAllergy = decodeSelection(a.Value, OtherAllergy)
	case entity.KindPreference:
		f.Preferences, f.OtherPreference = decodeSelection(a.Value, OtherPreference)
	case entity.KindBudget:
		f.Budget = a.Value
	}
}

func (f Fields) clone() Fields {
	c := f
	c.FoodType = cloneStrings(f.FoodType)
	c.Allergies = cloneStrings(f.Allergies)
	c.Preferences = cloneStrings(f.Preferences)
	return c
}

// answerFor encodes an input as the answer of a step.
func answerFor(step int, in Input) (entity.Answer, bool) {
	def, ok := Definition(step)
	if !ok {
		return entity.Answer{}, false
	}
	a := entity.Answer{Kind: def.Kind}
	switch def.Kind {
	case entity.KindAddress, entity.KindBudget:
		a.Value = strings.TrimSpace(in.Text)
	case entity.KindFoodType:
		a.Value = strings.Join(compact(in.Options), listSeparator)
	case entity.KindAllergy:
		a.Value = encodeSelection(in.Options, OtherAllergy, in.Other)
	case entity.KindPreference:
		a.Value = encodeSelection(in.Options, OtherPreference, in.Other)
	default:
		return entity.Answer{}, false
	}
	return a, true
}

// encodeSelection joins option ids. The "other" id goes last and carries its
// free text as "id:text"; the text runs to the end of the value.
func encodeSelection(options []string, otherID, otherText string) string {
	parts := make([]string, 0, len(options))
	other := false
	for _, id := range compact(options) {
		if id == otherID {
			other = true
			continue
		}
		parts = append(parts, id)
	}
	if other {
		entry := otherID
		if text := strings.TrimSpace(otherText); text != "" {
			entry += ":" + text
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, listSeparator)
}

func decodeSelection(value, otherID string) ([]string, string) {
	marker := otherID + ":"
	at := -1
	if strings.HasPrefix(value, marker) {
		at = 0
	} else if i := strings.Index(value, listSeparator+marker); i >= 0 {
		at = i + len(listSeparator)
	}
	if at < 0 {
		return splitList(value), ""
	}
	ids := splitList(value[:at])
	if !containsString(ids, otherID) {
		ids = append(ids, otherID)
	}
	return ids, value[at+len(marker):]
}

// selectionEntries lists the ids of a selection answer with the "other" id
// replaced by its "id:text" entry.
func selectionEntries(value, otherID string) []string {
	ids, other := decodeSelection(value, otherID)
	if other == "" {
		return ids
	}
	for i, id := range ids {
		if id == otherID {
			ids[i] = otherID + ":" + other
		}
	}
	return ids
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	return compact(strings.Split(value, listSeparator))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// DisplayAnswer formats an answer for the completed-question list.
func DisplayAnswer(a entity.Answer) string {
	switch a.Kind {
	case entity.KindBudget:
		return "¥" + a.Value
	case entity.KindFoodType:
		if a.Value == "" {
			return "未选择"
		}
		return displayList(a.Value, foodTypeOptions, "")
	case entity.KindAllergy:
		if a.Value == "" {
			return "无忌口"
		}
		return displayList(a.Value, allergyOptions, OtherAllergy)
	case entity.KindPreference:
		if a.Value == "" {
			return "无特殊偏好"
		}
		return displayList(a.Value, preferenceOptions, OtherPreference)
	}
	return a.Value
}

func displayList(value string, options []Option, otherID string) string {
	ids, other := splitList(value), ""
	if otherID != "" {
		ids, other = decodeSelection(value, otherID)
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if otherID != "" && id == otherID && other != "" {
			labels = append(labels, "其他: "+other)
			continue
		}
		labels = append(labels, optionLabel(options, id))
	}
	return strings.Join(labels, "、")
}
