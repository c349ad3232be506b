package bot

import (
	"OrderFlow/bot/flow"
	"OrderFlow/internal/lib/sl"
	"context"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// TelegramAPI defines the Telegram bot methods needed by the bot.
type TelegramAPI interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
	EditMessageText(text string, opts *tgbotapi.EditMessageTextOpts) (*tgbotapi.Message, bool, error)
}

// rendered is the last question message of a chat.
type rendered struct {
	messageID int64
	phase     flow.Phase
	step      int
	editing   bool
}

// Renderer shows flow views in the Telegram chats of their users. A view of the same
// question edits the previous message, a new question is sent as a new message.
type Renderer struct {
	api   TelegramAPI
	queue chan flow.View
	log   *slog.Logger

	mu    sync.Mutex
	chats map[string]int64
	last  map[string]rendered
}

func NewRenderer(api TelegramAPI, log *slog.Logger) *Renderer {
	return &Renderer{
		api:   api,
		queue: make(chan flow.View, 256),
		log:   log.With(sl.Module("telegram renderer")),
		chats: make(map[string]int64),
		last:  make(map[string]rendered),
	}
}

// Bind routes the views of a user to a chat.
func (r *Renderer) Bind(userID string, chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chats[userID] != chatID {
		delete(r.last, userID)
	}
	r.chats[userID] = chatID
}

func (r *Renderer) Unbind(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chats, userID)
	delete(r.last, userID)
}

// Notify queues a view. It never blocks the flow.
func (r *Renderer) Notify(view flow.View) {
	r.mu.Lock()
	_, bound := r.chats[view.UserID]
	r.mu.Unlock()
	if !bound {
		return
	}

	select {
	case r.queue <- view:
	default:
		r.log.Warn("render queue full, view dropped", slog.String("user_id", view.UserID))
	}
}

// Run sends queued views until ctx is done.
func (r *Renderer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-r.queue:
			if err := r.Render(view); err != nil {
				r.log.Warn("render view", slog.String("user_id", view.UserID), sl.Err(err))
			}
		}
	}
}

// Render shows a view right away.
func (r *Renderer) Render(view flow.View) error {
	r.mu.Lock()
	chatID, bound := r.chats[view.UserID]
	prev, hasPrev := r.last[view.UserID]
	r.mu.Unlock()
	if !bound {
		return nil
	}

	text := FormatView(view)
	keyboard := QuestionKeyboard(view)
	current := rendered{phase: view.Phase, step: view.ActiveStepIndex, editing: view.IsEditing}

	if hasPrev && prev.phase == current.phase && prev.step == current.step && prev.editing == current.editing {
		_, _, err := r.api.EditMessageText(text, &tgbotapi.EditMessageTextOpts{
			ChatId:      chatID,
			MessageId:   prev.messageID,
			ReplyMarkup: keyboard,
		})
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		// deleted or too old to edit, send it anew
		r.log.Debug("edit message", slog.Int64("chat_id", chatID), sl.Err(err))
	}

	msg, err := r.api.SendMessage(chatID, text, &tgbotapi.SendMessageOpts{
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return err
	}

	current.messageID = msg.MessageId
	r.mu.Lock()
	if r.chats[view.UserID] == chatID {
		r.last[view.UserID] = current
	}
	r.mu.Unlock()
	return nil
}
