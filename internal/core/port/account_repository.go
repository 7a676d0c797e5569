package port

import (
	"context"
	"time"

	"github.com/ndmitriev/auth-service/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
//
// The backing store must enforce email uniqueness atomically; Create surfaces
// a violation as repository.ErrDuplicateEmail so concurrent registrations for
// the same email resolve to exactly one winner.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// SetResetToken stores the reset token digest and its expiry, replacing
	// any previous pending reset.
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time, now time.Time) error
	// GetByActiveResetToken resolves an account whose stored reset token
	// digest matches and has not expired at the reference time. Unknown,
	// expired, and consumed tokens are indistinguishable: all miss.
	GetByActiveResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)
	// ConsumeResetToken replaces the password hash and clears the reset
	// fields in one guarded update. It reports repository.ErrNotFound when
	// the token digest no longer matches, so a token is consumed at most
	// once under concurrent confirmations.
	ConsumeResetToken(ctx context.Context, id string, tokenHash string, passwordHash string, now time.Time) error
}
