package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramAPI adapts *tgbotapi.BotAPI to the narrow interfaces the gate,
// pipeline and broadcaster consume, so those packages stay fakeable.
type telegramAPI struct {
	api *tgbotapi.BotAPI
}

// IsMember implements gate.MembershipChecker via getChatMember.
func (t *telegramAPI) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// SendVideo implements pipeline.Uploader.
func (t *telegramAPI) SendVideo(ctx context.Context, chatID int64, path, filename, caption string) (int, error) {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.SupportsStreaming = true
	sent, err := t.api.Send(video)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Forward implements pipeline.Uploader.
func (t *telegramAPI) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	_, err := t.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	return err
}

// SendText implements the broadcast Sender.
func (t *telegramAPI) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.api.Send(msg)
	return err
}
