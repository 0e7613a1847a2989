package storage

import (
	"context"
	"errors"
	"time"

	"github.com/teragrab/teragrab/models"
)

// ErrNotFound is returned when no record exists for a user ID.
var ErrNotFound = errors.New("user record not found")

// Store persists UserRecords across restarts. Implementations must be
// safe for concurrent use; ReserveSlot in particular must behave as a
// single atomic compare-and-set so that two near-simultaneous requests
// from the same user cannot both pass the rate limit.
type Store interface {
	// Ensure creates a record for the user if one does not exist yet.
	Ensure(ctx context.Context, userID int64) error

	// Get returns the record for a user, or ErrNotFound.
	Get(ctx context.Context, userID int64) (*models.UserRecord, error)

	// SetToken stores or replaces the user's access token and its expiry,
	// creating the record if needed.
	SetToken(ctx context.Context, userID int64, token string, expiry time.Time) error

	// ReserveSlot atomically admits a request: if at least window has
	// passed since the user's last admitted request (or there was none),
	// it stamps now as the last request time and returns ok=true.
	// Otherwise it returns ok=false and the remaining wait.
	ReserveSlot(ctx context.Context, userID int64, now time.Time, window time.Duration) (retryAfter time.Duration, ok bool, err error)

	// ListUserIDs returns every known user ID, for broadcast fan-out.
	ListUserIDs(ctx context.Context) ([]int64, error)

	// Count returns the number of stored users.
	Count(ctx context.Context) (int64, error)

	// Close releases underlying resources.
	Close() error
}
