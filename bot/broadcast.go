package bot

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/teragrab/teragrab/storage"
	"github.com/teragrab/teragrab/utils"
)

// Sender delivers a plain text message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Summary tallies one broadcast run.
type Summary struct {
	Total  int
	Sent   int
	Failed int
}

// Broadcaster fans a message out to every stored user, sequentially and
// paced, to respect the platform's outbound rate limits. Per-recipient
// failures (blocked bot, deactivated account) are tallied, never fatal.
type Broadcaster struct {
	store   storage.Store
	sender  Sender
	limiter *rate.Limiter
}

// NewBroadcaster builds a Broadcaster pacing at perSecond sends per second.
func NewBroadcaster(store storage.Store, sender Sender, perSecond float64) *Broadcaster {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Broadcaster{
		store:   store,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Run sends text to every known user and returns the tally. It stops
// early only when ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context, text string) (Summary, error) {
	ids, err := b.store.ListUserIDs(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(ids)}
	for _, id := range ids {
		if err := b.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		if err := b.sender.SendText(ctx, id, text); err != nil {
			utils.Sugar.Infof("broadcast to %d failed: %v", id, err)
			summary.Failed++
			continue
		}
		summary.Sent++
	}
	return summary, nil
}
