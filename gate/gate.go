// Package gate makes the per-request admission decision: channel
// subscription, access token, then rate limit, in that fixed order.
// Earlier checks are cheaper and more likely to short-circuit.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/teragrab/teragrab/storage"
)

// Decision is the admission outcome for one request.
type Decision int

const (
	Admitted Decision = iota
	NotSubscribed
	TokenMissing
	TokenExpired
	RateLimited
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case NotSubscribed:
		return "not_subscribed"
	case TokenMissing:
		return "token_missing"
	case TokenExpired:
		return "token_expired"
	case RateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// Result carries the decision plus the remaining cooldown for RateLimited.
type Result struct {
	Decision   Decision
	RetryAfter time.Duration
}

// MembershipChecker answers whether a user belongs to the subscription
// channel. The Telegram transport implements it; tests fake it.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Gate combines the three admission checks over the user store.
type Gate struct {
	store      storage.Store
	membership MembershipChecker
	fsubChatID int64
	admins     map[int64]bool
	window     time.Duration
}

// New builds a Gate. fsubChatID 0 disables the subscription check.
func New(store storage.Store, membership MembershipChecker, fsubChatID int64, adminIDs []int64, window time.Duration) *Gate {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Gate{
		store:      store,
		membership: membership,
		fsubChatID: fsubChatID,
		admins:     admins,
		window:     window,
	}
}

// IsAdmin reports whether the user is a configured administrator.
func (g *Gate) IsAdmin(userID int64) bool { return g.admins[userID] }

// CheckSubscription runs only the subscription step. Commands that are
// gated on membership but not on tokens (such as token issuance) use it
// directly. A membership lookup failure counts as not subscribed.
func (g *Gate) CheckSubscription(ctx context.Context, userID int64) bool {
	if g.admins[userID] || g.fsubChatID == 0 {
		return true
	}
	ok, err := g.membership.IsMember(ctx, g.fsubChatID, userID)
	if err != nil {
		return false
	}
	return ok
}

// Check performs the full admission: subscription, token, rate limit.
// Admins bypass all three. On Admitted the user's last-request timestamp
// has already been stamped, atomically with the rate-limit decision.
func (g *Gate) Check(ctx context.Context, userID int64, now time.Time) (Result, error) {
	if g.admins[userID] {
		return Result{Decision: Admitted}, nil
	}

	if !g.CheckSubscription(ctx, userID) {
		return Result{Decision: NotSubscribed}, nil
	}

	rec, err := g.store.Get(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Result{Decision: TokenMissing}, nil
	case err != nil:
		return Result{}, err
	}

	if !rec.HasValidToken(now) {
		if rec.Token != "" && rec.TokenExpiry != nil {
			return Result{Decision: TokenExpired}, nil
		}
		return Result{Decision: TokenMissing}, nil
	}

	retryAfter, ok, err := g.store.ReserveSlot(ctx, userID, now, g.window)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Decision: RateLimited, RetryAfter: retryAfter}, nil
	}
	return Result{Decision: Admitted}, nil
}
