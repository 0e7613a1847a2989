package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/teragrab/teragrab/gate"
	"github.com/teragrab/teragrab/resolver"
	"github.com/teragrab/teragrab/storage"
	"github.com/teragrab/teragrab/utils"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	utils.Sugar.Infof("/start from %d", userID)

	// Register for broadcasts even before any download.
	if err := b.store.Ensure(ctx, userID); err != nil {
		utils.Sugar.Errorf("could not register user %d: %v", userID, err)
	}

	if !b.gate.CheckSubscription(ctx, userID) {
		b.replySubscribe(msg)
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, startText)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if markup := b.joinMarkup(); markup != nil {
		out.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(out); err != nil {
		utils.Sugar.Errorf("start reply to %d failed: %v", msg.Chat.ID, err)
	}
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.CheckSubscription(ctx, msg.From.ID) {
		b.replySubscribe(msg)
		return
	}
	b.reply(msg, fmt.Sprintf(helpText, b.cfg.TokenExpiryHours))
}

func (b *Bot) handleGetToken(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	utils.Sugar.Infof("/get_token from %d", userID)

	if !b.gate.CheckSubscription(ctx, userID) {
		b.replySubscribe(msg)
		return
	}
	if err := b.store.Ensure(ctx, userID); err != nil {
		utils.Sugar.Errorf("could not register user %d: %v", userID, err)
		b.reply(msg, failureMessage(err))
		return
	}

	now := time.Now()

	// An unexpired token is returned as-is; expiry is not reset and
	// re-requesting carries no cooldown.
	rec, err := b.store.Get(ctx, userID)
	if err == nil && rec.HasValidToken(now) {
		left := utils.FormatDuration(rec.TokenExpiry.Sub(now))
		b.reply(msg, fmt.Sprintf(
			"✅ <b>You already have an active token:</b>\n\n<code>%s</code>\n\nIt is valid for another <b>%s</b>.",
			rec.Token, left))
		return
	}
	if err != nil && err != storage.ErrNotFound {
		utils.Sugar.Errorf("token lookup for %d failed: %v", userID, err)
		b.reply(msg, failureMessage(err))
		return
	}

	ttl := time.Duration(b.cfg.TokenExpiryHours) * time.Hour
	token, expiresAt, err := utils.MintToken(b.cfg.TokenSecret, userID, ttl)
	if err != nil {
		utils.Sugar.Errorf("minting token for %d failed: %v", userID, err)
		b.reply(msg, failureMessage(err))
		return
	}
	if err := b.store.SetToken(ctx, userID, token, expiresAt); err != nil {
		utils.Sugar.Errorf("storing token for %d failed: %v", userID, err)
		b.reply(msg, failureMessage(err))
		return
	}

	b.reply(msg, fmt.Sprintf(
		"🔑 <b>Your new access token:</b>\n\n<code>%s</code>\n\nValid for <b>%d hours</b> (until %s).\nYou can now send me Terabox links.",
		token, b.cfg.TokenExpiryHours, expiresAt.UTC().Format("2006-01-02 15:04 MST")))
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if !b.gate.IsAdmin(userID) {
		b.reply(msg, "❌ <b>Access denied:</b> you are not authorized to use this command.")
		return
	}
	if !b.cfg.BroadcastEnabled {
		b.reply(msg, "❌ Broadcast is currently disabled.")
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg, "<b>Usage:</b> <code>/broadcast &lt;message text&gt;</code>")
		return
	}

	utils.Sugar.Infof("broadcast started by admin %d", userID)
	summary, err := b.broadcaster.Run(ctx, text)
	if err != nil {
		utils.Sugar.Errorf("broadcast aborted: %v", err)
		b.reply(msg, fmt.Sprintf("⚠️ Broadcast aborted after %d sends: %v", summary.Sent, err))
		return
	}
	b.reply(msg, fmt.Sprintf(
		"✅ <b>Broadcast complete</b>\n\nTotal users: %d\nSent: %d\nFailed: %d",
		summary.Total, summary.Sent, summary.Failed))
}

// handleLink runs the full download flow for a plain text message:
// admission, link extraction, resolution, content filter, delivery.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if err := b.store.Ensure(ctx, userID); err != nil {
		utils.Sugar.Errorf("could not register user %d: %v", userID, err)
	}

	res, err := b.gate.Check(ctx, userID, time.Now())
	if err != nil {
		utils.Sugar.Errorf("admission check for %d failed: %v", userID, err)
		b.reply(msg, failureMessage(err))
		return
	}
	if res.Decision != gate.Admitted {
		utils.Sugar.Infof("user %d rejected: %s", userID, res.Decision)
		if res.Decision == gate.NotSubscribed {
			b.replySubscribe(msg)
			return
		}
		b.reply(msg, decisionMessage(res))
		return
	}

	link := resolver.ExtractLink(msg.Text)
	if link == "" {
		b.reply(msg, invalidLinkText)
		return
	}

	utils.Sugar.Infof("resolving %s for user %d", link, userID)
	status := b.reply(msg, "⏳ Processing your link...")

	resolved, err := b.resolver.Resolve(ctx, link)
	if err != nil {
		utils.Sugar.Warnf("resolution of %s failed: %v", link, err)
		b.editStatus(msg, status, failureMessage(err))
		return
	}

	if keyword, ok := b.filter.Check(resolved.Filename); !ok {
		utils.Sugar.Warnf("blocked %q for user %d (keyword %q)", resolved.Filename, userID, keyword)
		b.editStatus(msg, status, "🔞 <b>Content blocked</b>\nThe filename suggests content that is not allowed by this bot.")
		return
	}

	size := "unknown size"
	if resolved.SizeBytes > 0 {
		size = utils.FormatBytes(resolved.SizeBytes)
	}
	b.editStatus(msg, status, fmt.Sprintf("📥 Downloading <b>%s</b> (%s)...", utils.Sanitize(resolved.Filename), size))

	if err := b.pipeline.Deliver(ctx, msg.Chat.ID, resolved); err != nil {
		utils.Sugar.Errorf("delivery of %q to %d failed: %v", resolved.Filename, msg.Chat.ID, err)
		b.editStatus(msg, status, failureMessage(err))
		return
	}

	utils.Sugar.Infof("delivered %q to user %d", resolved.Filename, userID)
	if status != nil {
		b.delete(msg.Chat.ID, status.MessageID)
	}
}

// editStatus updates the progress message, falling back to a fresh reply
// when the original send failed.
func (b *Bot) editStatus(msg *tgbotapi.Message, status *tgbotapi.Message, text string) {
	if status == nil {
		b.reply(msg, text)
		return
	}
	b.edit(msg.Chat.ID, status.MessageID, text)
}

// replySubscribe sends the join-channel prompt with an invite button
// when one can be derived.
func (b *Bot) replySubscribe(msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID,
		"🔒 <b>Subscription required</b>\nYou need to join our channel to use this bot. Join and try again.")
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = msg.MessageID
	out.DisableWebPagePreview = true
	if markup := b.joinMarkup(); markup != nil {
		out.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(out); err != nil {
		utils.Sugar.Errorf("subscribe prompt to %d failed: %v", msg.Chat.ID, err)
	}
}
