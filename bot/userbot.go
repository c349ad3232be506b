package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/lib/validate"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

// Core is the part of the application the bot drives.
type Core interface {
	SendVerificationCode(ctx context.Context, phone string) error
	Login(ctx context.Context, phone, code string) (*entity.LoginResult, error)
	LoginWithInvite(ctx context.Context, phone, inviteCode string) (*entity.LoginResult, error)
	AuthenticateByToken(token string) (*entity.Session, error)
	Logout(ctx context.Context, session *entity.Session) error
	LinkTelegram(ctx context.Context, session *entity.Session, telegramId int64) error
	TelegramSession(ctx context.Context, telegramId int64) (*entity.Session, error)

	CurrentView(ctx context.Context, session *entity.Session) (flow.View, error)
	SubmitAnswer(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error)
	Draft(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error)
	RequestEdit(ctx context.Context, session *entity.Session, step int) (flow.View, error)
	ConfirmEdit(ctx context.Context, session *entity.Session, input flow.Input) (flow.View, error)
	CancelEdit(ctx context.Context, session *entity.Session) (flow.View, error)
	ClaimFreeOrder(ctx context.Context, session *entity.Session) (flow.View, error)
	SubmitOrder(ctx context.Context, session *entity.Session) (flow.View, error)
	InviteSummary(ctx context.Context, session *entity.Session) (*entity.InviteSummary, error)
}

// pendingLogin is a phone waiting for its verification or invite code.
type pendingLogin struct {
	phone          string
	awaitingInvite bool
}

// UserBot is the Telegram front end of the order questionnaire.
type UserBot struct {
	log         *slog.Logger
	bot         *tgbotapi.Bot
	api         TelegramAPI
	botUsername string
	core        Core
	renderer    *Renderer

	mu      sync.Mutex
	pending map[int64]*pendingLogin
}

// NewUserBot creates a new user bot instance.
func NewUserBot(botName, apiKey string, log *slog.Logger) (*UserBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}

	b := newUserBot(api, log)
	b.bot = api
	b.botUsername = botName
	return b, nil
}

func newUserBot(api TelegramAPI, log *slog.Logger) *UserBot {
	return &UserBot{
		log:      log.With(sl.Module("userbot")),
		api:      api,
		renderer: NewRenderer(api, log),
		pending:  make(map[int64]*pendingLogin),
	}
}

func (b *UserBot) SetCore(core Core) {
	b.core = core
}

// API exposes the Telegram client for other senders.
func (b *UserBot) API() TelegramAPI {
	return b.api
}

// Renderer is the flow listener that shows views in Telegram chats.
func (b *UserBot) Renderer() *Renderer {
	return b.renderer
}

// Start begins polling for updates and handling them.
func (b *UserBot) Start(ctx context.Context) error {
	if b.bot == nil {
		return errors.New("telegram client not initialized")
	}
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(bot *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			log.Println("an error occurred while handling update:", err.Error())
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", b.handleStart))
	dispatcher.AddHandler(handlers.NewCommand("logout", b.handleLogout))
	dispatcher.AddHandler(handlers.NewCommand("free", b.handleFree))
	dispatcher.AddHandler(handlers.NewCommand("invite", b.handleInvite))
	dispatcher.AddHandler(handlers.NewCallback(b.flowCallbackFilter, b.handleCallback))
	dispatcher.AddHandler(handlers.NewMessage(message.Contact, b.handleContact))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, b.handleMessage))

	go b.renderer.Run(ctx)

	err := updater.StartPolling(b.bot, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	b.log.Info("user bot started", slog.String("username", b.botUsername))

	// Idle, to keep updates coming in
	updater.Idle()

	return nil
}

func (b *UserBot) flowCallbackFilter(cq *tgbotapi.CallbackQuery) bool {
	return IsFlowCallback(cq.Data)
}

func (b *UserBot) handleStart(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.onStart(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id)
}

func (b *UserBot) handleLogout(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.onLogout(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id)
}

func (b *UserBot) handleFree(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.onCallback(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id, BuildCallback(ActionFree))
}

func (b *UserBot) handleCallback(bot *tgbotapi.Bot, ctx *ext.Context) error {
	_, _ = ctx.CallbackQuery.Answer(bot, nil)

	data := ctx.CallbackQuery.Data
	err := b.onCallback(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id, data)
	if err != nil {
		b.log.Error("flow callback error",
			slog.Int64("user_id", ctx.EffectiveUser.Id),
			slog.String("data", data),
			sl.Err(err),
		)
	}
	return err
}

func (b *UserBot) handleContact(_ *tgbotapi.Bot, ctx *ext.Context) error {
	contact := ctx.EffectiveMessage.Contact
	if contact == nil {
		return nil
	}
	return b.onContact(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id, contact.PhoneNumber)
}

func (b *UserBot) handleMessage(_ *tgbotapi.Bot, ctx *ext.Context) error {
	err := b.onText(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id, ctx.EffectiveMessage.Text)
	if err != nil {
		b.log.Error("flow message error",
			slog.Int64("user_id", ctx.EffectiveUser.Id),
			sl.Err(err),
		)
	}
	return err
}

func (b *UserBot) onStart(ctx context.Context, telegramId, chatID int64) error {
	session, err := b.core.TelegramSession(ctx, telegramId)
	if err != nil {
		return err
	}
	if session == nil {
		return b.askContact(chatID)
	}
	return b.showFlow(ctx, session, chatID)
}

func (b *UserBot) askContact(chatID int64) error {
	_, err := b.api.SendMessage(chatID, "请分享手机号获取验证码，也可以直接输入手机号", &tgbotapi.SendMessageOpts{
		ReplyMarkup: ContactRequestKeyboard("📱 分享手机号"),
	})
	return err
}

func (b *UserBot) onContact(ctx context.Context, telegramId, chatID int64, phone string) error {
	phone = normalizePhone(phone)
	if !validate.Phone(phone) {
		return b.reply(chatID, "请输入正确的手机号")
	}

	if err := b.core.SendVerificationCode(ctx, phone); err != nil {
		b.log.With(sl.Secret("phone", phone)).Warn("send verification code", sl.Err(err))
		return b.reply(chatID, userText(err))
	}

	b.mu.Lock()
	b.pending[telegramId] = &pendingLogin{phone: phone}
	b.mu.Unlock()

	_, err := b.api.SendMessage(chatID, "验证码已发送，请输入收到的验证码", &tgbotapi.SendMessageOpts{
		ReplyMarkup: RemoveKeyboard(),
	})
	return err
}

func (b *UserBot) onText(ctx context.Context, telegramId, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	session, err := b.core.TelegramSession(ctx, telegramId)
	if err != nil {
		return err
	}
	if session == nil {
		return b.login(ctx, telegramId, chatID, text)
	}

	view, err := b.core.CurrentView(ctx, session)
	if err != nil {
		return err
	}
	step := view.ActiveStepIndex

	switch {
	case view.Phase != flow.PhaseAnswering && view.Phase != flow.PhaseEditing:
		return b.reply(chatID, "请使用消息下方的按钮")
	case view.Kind == entity.KindAddress || view.Kind == entity.KindBudget:
		in := flow.Input{Text: text}
		if view.IsEditing {
			_, err = b.core.ConfirmEdit(ctx, session, in)
		} else {
			_, err = b.core.SubmitAnswer(ctx, session, step, in)
		}
	case view.Kind == entity.KindAllergy || view.Kind == entity.KindPreference:
		// free text goes to the "other" option of the step
		fields := view.Fields
		in := fields.Input(step)
		otherID := flow.OtherAllergy
		if view.Kind == entity.KindPreference {
			otherID = flow.OtherPreference
		}
		if !contains(in.Options, otherID) {
			in.Options = append(in.Options, otherID)
		}
		in.Other = text
		_, err = b.core.Draft(ctx, session, step, in)
	default:
		return b.reply(chatID, "请使用消息下方的按钮")
	}
	return b.flowError(chatID, err)
}

// login consumes the verification code and then, for new users, the invite code.
func (b *UserBot) login(ctx context.Context, telegramId, chatID int64, text string) error {
	b.mu.Lock()
	pending := b.pending[telegramId]
	b.mu.Unlock()

	if pending == nil {
		if validate.Phone(normalizePhone(text)) {
			return b.onContact(ctx, telegramId, chatID, text)
		}
		return b.askContact(chatID)
	}

	var res *entity.LoginResult
	var err error
	if pending.awaitingInvite {
		res, err = b.core.LoginWithInvite(ctx, pending.phone, text)
	} else {
		res, err = b.core.Login(ctx, pending.phone, text)
	}
	if err != nil {
		return b.reply(chatID, userText(err))
	}
	if res.NeedInvite {
		b.mu.Lock()
		pending.awaitingInvite = true
		b.mu.Unlock()
		return b.reply(chatID, "欢迎新用户！请输入邀请码完成注册")
	}

	session, err := b.core.AuthenticateByToken(res.Token)
	if err != nil {
		return err
	}
	if err = b.core.LinkTelegram(ctx, session, telegramId); err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.pending, telegramId)
	b.mu.Unlock()

	b.log.Info("telegram user logged in",
		slog.Int64("telegram_id", telegramId),
		slog.String("user_id", session.UserID),
	)
	return b.showFlow(ctx, session, chatID)
}

func (b *UserBot) showFlow(ctx context.Context, session *entity.Session, chatID int64) error {
	b.renderer.Bind(session.UserID, chatID)
	view, err := b.core.CurrentView(ctx, session)
	if err != nil {
		return err
	}
	return b.renderer.Render(view)
}

func (b *UserBot) onCallback(ctx context.Context, telegramId, chatID int64, data string) error {
	cb := ParseCallback(data)
	if cb == nil {
		return nil
	}
	session, err := b.core.TelegramSession(ctx, telegramId)
	if err != nil {
		return err
	}
	if session == nil {
		return b.askContact(chatID)
	}
	b.renderer.Bind(session.UserID, chatID)

	switch cb.Action {
	case ActionOption:
		step, ok := cb.Step()
		if !ok {
			return nil
		}
		view, err := b.core.CurrentView(ctx, session)
		if err != nil {
			return err
		}
		fields := view.Fields
		in := fields.Input(step)
		in.Options = toggle(in.Options, cb.OptionID())
		_, err = b.core.Draft(ctx, session, step, in)
		return b.flowError(chatID, err)

	case ActionDone, ActionConfirm:
		view, err := b.core.CurrentView(ctx, session)
		if err != nil {
			return err
		}
		fields := view.Fields
		in := fields.Input(view.ActiveStepIndex)
		if view.IsEditing {
			_, err = b.core.ConfirmEdit(ctx, session, in)
		} else {
			_, err = b.core.SubmitAnswer(ctx, session, view.ActiveStepIndex, in)
		}
		return b.flowError(chatID, err)

	case ActionBudget:
		view, err := b.core.CurrentView(ctx, session)
		if err != nil {
			return err
		}
		in := flow.Input{Text: cb.Value}
		if view.IsEditing {
			_, err = b.core.ConfirmEdit(ctx, session, in)
		} else {
			_, err = b.core.SubmitAnswer(ctx, session, flow.StepBudget, in)
		}
		return b.flowError(chatID, err)

	case ActionEdit:
		step, ok := cb.Step()
		if !ok {
			return nil
		}
		_, err = b.core.RequestEdit(ctx, session, step)
		return b.flowError(chatID, err)

	case ActionCancel:
		_, err = b.core.CancelEdit(ctx, session)
		return b.flowError(chatID, err)

	case ActionFree:
		view, err := b.core.ClaimFreeOrder(ctx, session)
		if err != nil {
			return b.flowError(chatID, err)
		}
		if view.FreeDrinksRemaining != nil {
			return b.reply(chatID, fmt.Sprintf("免单奶茶领取成功，剩余 %d 份", *view.FreeDrinksRemaining))
		}
		return nil

	case ActionSubmit:
		// failures are carried by the view
		_, err = b.core.SubmitOrder(ctx, session)
		if err != nil && !flow.Silent(err) {
			b.log.Warn("submit order", slog.String("user_id", session.UserID), sl.Err(err))
		}
		return nil
	}
	return nil
}

func (b *UserBot) onLogout(ctx context.Context, telegramId, chatID int64) error {
	session, err := b.core.TelegramSession(ctx, telegramId)
	if err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.pending, telegramId)
	b.mu.Unlock()
	if session == nil {
		return b.askContact(chatID)
	}

	if err = b.core.Logout(ctx, session); err != nil {
		return err
	}
	b.renderer.Unbind(session.UserID)
	return b.reply(chatID, "已退出登录，发送 /start 重新登录")
}

// flowError tells the user why an action was refused. Silent guards are dropped.
func (b *UserBot) flowError(chatID int64, err error) error {
	if err == nil || flow.Silent(err) {
		return nil
	}
	return b.reply(chatID, userText(err))
}

func (b *UserBot) reply(chatID int64, text string) error {
	_, err := b.api.SendMessage(chatID, text, nil)
	return err
}

func userText(err error) string {
	var verr *flow.ValidationError
	var um interface{ UserMessage() string }
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.As(err, &um):
		return um.UserMessage()
	case errors.Is(err, flow.ErrEditInProgress):
		return "请先完成当前的修改"
	case errors.Is(err, flow.ErrStepLocked):
		return "免单模式下该项不可修改"
	case errors.Is(err, flow.ErrNotReady):
		return "请先回答完所有问题"
	case errors.Is(err, flow.ErrNotAnswering), errors.Is(err, flow.ErrOutOfOrderSubmit):
		return "当前无法执行该操作"
	}
	return "操作失败，请重试"
}

func toggle(values []string, id string) []string {
	out := make([]string, 0, len(values)+1)
	found := false
	for _, v := range values {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found && id != "" {
		out = append(out, id)
	}
	return out
}

// normalizePhone keeps the digits of a mainland number, dropping the country code.
func normalizePhone(phone string) string {
	var sb strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	digits := sb.String()
	if len(digits) == 13 && strings.HasPrefix(digits, "86") {
		digits = digits[2:]
	}
	return digits
}
