package bot

import (
	"OrderFlow/entity"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

func (b *UserBot) handleInvite(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.onInvite(context.Background(), ctx.EffectiveUser.Id, ctx.EffectiveChat.Id)
}

func (b *UserBot) onInvite(ctx context.Context, telegramId, chatID int64) error {
	session, err := b.core.TelegramSession(ctx, telegramId)
	if err != nil {
		return err
	}
	if session == nil {
		return b.askContact(chatID)
	}

	summary, err := b.core.InviteSummary(ctx, session)
	if err != nil {
		return b.reply(chatID, userText(err))
	}
	return b.reply(chatID, FormatInvite(summary))
}

// FormatInvite renders the invite summary as a chat message.
func FormatInvite(s *entity.InviteSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("你的邀请码: %s\n", s.Stats.InviteCode))
	sb.WriteString(fmt.Sprintf("已使用 %d/%d 次，还可邀请 %d 人\n", s.Stats.CurrentUses, s.Stats.MaxUses, s.Stats.RemainingUses))

	if len(s.Progress.Invitations) > 0 {
		sb.WriteString(fmt.Sprintf("\n已邀请 %d 人:\n", s.Progress.Total))
		for _, inv := range s.Progress.Invitations {
			sb.WriteString("• " + inv.MaskedPhone)
			if inv.InvitedAt != "" {
				sb.WriteString(" (" + inv.InvitedAt + ")")
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	switch {
	case s.Stats.FreeDrinkClaimed:
		sb.WriteString("免单奶茶已领取")
	case s.Stats.EligibleForFreeDrink && s.FreeDrinksRemaining > 0:
		sb.WriteString(fmt.Sprintf("你可以领取一杯免单奶茶，发送 /free 领取 (剩余 %d 份)", s.FreeDrinksRemaining))
	case s.Stats.EligibleForFreeDrink:
		sb.WriteString("免单奶茶已领完")
	default:
		sb.WriteString(fmt.Sprintf("免单奶茶剩余 %d 份", s.FreeDrinksRemaining))
	}
	return sb.String()
}
