package bot

import (
	"OrderFlow/bot/flow"
	"OrderFlow/internal/lib/sl"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// AdminNotifier reports placed orders to the operator chat.
type AdminNotifier struct {
	api     TelegramAPI
	adminId int64
	log     *slog.Logger

	mu       sync.Mutex
	reported map[string]bool
}

func NewAdminNotifier(api TelegramAPI, adminId int64, log *slog.Logger) *AdminNotifier {
	return &AdminNotifier{
		api:      api,
		adminId:  adminId,
		log:      log.With(sl.Module("admin notifier")),
		reported: make(map[string]bool),
	}
}

// Notify sends one message per completed order. The send runs in its own goroutine.
func (a *AdminNotifier) Notify(view flow.View) {
	if a.adminId == 0 || view.Phase != flow.PhaseCompleted || view.OrderNumber == "" {
		return
	}
	a.mu.Lock()
	if a.reported[view.OrderNumber] {
		a.mu.Unlock()
		return
	}
	a.reported[view.OrderNumber] = true
	a.mu.Unlock()

	go a.plainResponse(a.adminId, orderSummary(view))
}

func orderSummary(view flow.View) string {
	var sb strings.Builder
	kind := "订单"
	if view.FreeOrder {
		kind = "免单"
	}
	sb.WriteString(fmt.Sprintf("*新%s* %s\n", kind, view.OrderNumber))
	for _, a := range view.Answers {
		if def, ok := flow.Definition(a.Step); ok {
			sb.WriteString(fmt.Sprintf("%s: %s\n", def.Title, a.Display))
		}
	}
	return sb.String()
}

func (a *AdminNotifier) plainResponse(chatId int64, text string) {
	sanitized := sanitize(text)
	if sanitized == "" {
		a.log.With(slog.Int64("id", chatId)).Debug("empty message")
		return
	}

	_, err := a.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		a.log.With(
			slog.Int64("id", chatId),
		).Warn("sending message", sl.Err(err))
		_, err = a.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			a.log.With(
				slog.Int64("id", chatId),
			).Error("sending safe message", sl.Err(err))
		}
	}
}

// sanitize escapes MarkdownV2 reserved characters, keeping * for bold.
func sanitize(input string) string {
	reservedChars := "\\`_{}#+-.!|()[]=~>"

	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
