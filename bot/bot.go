// Package bot wires the Telegram transport to the admission gate, link
// resolver, content filter and delivery pipeline.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/teragrab/teragrab/config"
	"github.com/teragrab/teragrab/filter"
	"github.com/teragrab/teragrab/gate"
	"github.com/teragrab/teragrab/pipeline"
	"github.com/teragrab/teragrab/resolver"
	"github.com/teragrab/teragrab/storage"
	"github.com/teragrab/teragrab/utils"
)

// broadcastPerSecond paces the fan-out below Telegram's ~30 msg/s bot
// limit with headroom for regular traffic.
const broadcastPerSecond = 10

// Bot owns the long-poll loop and per-update dispatch.
type Bot struct {
	api         *tgbotapi.BotAPI
	tg          *telegramAPI
	cfg         config.AppConfig
	store       storage.Store
	gate        *gate.Gate
	resolver    *resolver.Client
	filter      *filter.Filter
	pipeline    *pipeline.Pipeline
	broadcaster *Broadcaster
}

// New authorizes against the Bot API and assembles the components.
func New(cfg config.AppConfig, store storage.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	tg := &telegramAPI{api: api}
	cache := resolver.NewCache(time.Duration(cfg.ResolveCacheTTLMin)*time.Minute, utils.GetRedis())

	return &Bot{
		api:   api,
		tg:    tg,
		cfg:   cfg,
		store: store,
		gate: gate.New(store, tg, cfg.FsubChatID, cfg.AdminIDs,
			time.Duration(cfg.SpamDelaySeconds)*time.Second),
		resolver: resolver.NewClient(cfg.TeraboxBaseURL, cfg.TeraboxCookie,
			time.Duration(cfg.RequestTimeoutSeconds)*time.Second, cache),
		filter:      filter.New(cfg.BlockedKeywords),
		pipeline:    pipeline.New(cfg.DownloadDir, cfg.TeraboxBaseURL+"/", tg, cfg.DumpChatID),
		broadcaster: NewBroadcaster(store, tg, broadcastPerSecond),
	}, nil
}

// Username returns the authorized bot account name.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Start runs the long-poll loop until ctx is cancelled. Each private
// message is handled in its own goroutine; the transport may deliver
// overlapping updates and nothing here assumes otherwise.
func (b *Bot) Start(ctx context.Context) {
	utils.Sugar.Infof("bot authorized as @%s", b.Username())

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.From == nil || !msg.Chat.IsPrivate() {
			continue
		}
		go b.handleMessage(ctx, msg)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "help":
			b.handleHelp(ctx, msg)
		case "get_token":
			b.handleGetToken(ctx, msg)
		case "broadcast":
			b.handleBroadcast(ctx, msg)
		}
		return
	}
	if msg.Text != "" {
		b.handleLink(ctx, msg)
	}
}

// reply sends an HTML-mode reply to msg. Errors are logged only; a chat
// we cannot reach is not worth crashing a handler over.
func (b *Bot) reply(msg *tgbotapi.Message, text string) *tgbotapi.Message {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = msg.MessageID
	out.DisableWebPagePreview = true
	sent, err := b.api.Send(out)
	if err != nil {
		utils.Sugar.Errorf("reply to chat %d failed: %v", msg.Chat.ID, err)
		return nil
	}
	return &sent
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		utils.Sugar.Debugf("edit in chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) delete(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		utils.Sugar.Debugf("delete in chat %d failed: %v", chatID, err)
	}
}

// joinMarkup builds a join-channel button when the subscription channel
// exposes an invite link or a public username.
func (b *Bot) joinMarkup() *tgbotapi.InlineKeyboardMarkup {
	if b.cfg.FsubChatID == 0 {
		return nil
	}
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: b.cfg.FsubChatID},
	})
	if err != nil {
		utils.Sugar.Warnf("could not fetch subscription channel info: %v", err)
		return nil
	}
	link := chat.InviteLink
	if link == "" && chat.UserName != "" {
		link = "https://t.me/" + chat.UserName
	}
	if link == "" {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Join "+chat.Title, link),
		),
	)
	return &markup
}
