package bot

import (
	"strconv"
	"strings"
)

// Callback action constants
const (
	CallbackPrefix = "of:"
	ActionOption   = "opt"
	ActionDone     = "done"
	ActionBudget   = "budget"
	ActionEdit     = "edit"
	ActionConfirm  = "confirm"
	ActionCancel   = "cancel"
	ActionFree     = "free"
	ActionSubmit   = "submit"
)

// CallbackData represents parsed callback data.
type CallbackData struct {
	Action string
	Value  string
}

// ParseCallback parses a callback data string.
// Format: "of:action:value" or "of:action"; option values are "step:optionID".
func ParseCallback(data string) *CallbackData {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return nil
	}

	data = strings.TrimPrefix(data, CallbackPrefix)
	parts := strings.SplitN(data, ":", 2)
	if parts[0] == "" {
		return nil
	}

	cb := &CallbackData{
		Action: parts[0],
	}
	if len(parts) > 1 {
		cb.Value = parts[1]
	}
	return cb
}

// IsFlowCallback checks if the callback data belongs to the order flow.
func IsFlowCallback(data string) bool {
	return strings.HasPrefix(data, CallbackPrefix)
}

// BuildCallback creates a callback data string.
func BuildCallback(action string, value ...string) string {
	if len(value) > 0 && value[0] != "" {
		return CallbackPrefix + action + ":" + value[0]
	}
	return CallbackPrefix + action
}

func optionCallback(step int, optionID string) string {
	return BuildCallback(ActionOption, strconv.Itoa(step)+":"+optionID)
}

// Step returns the step addressed by option, done and edit callbacks.
func (c *CallbackData) Step() (int, bool) {
	value := c.Value
	if c.Action == ActionOption {
		value, _, _ = strings.Cut(value, ":")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OptionID returns the toggled option of an option callback.
func (c *CallbackData) OptionID() string {
	if c.Action != ActionOption {
		return ""
	}
	_, id, _ := strings.Cut(c.Value, ":")
	return id
}
