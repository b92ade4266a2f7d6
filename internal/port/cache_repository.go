package port

import (
	"context"

	"github.com/rl1809/event-pos/internal/core/domain"
)

type CartRepository interface {
	// LoadCart returns nil when the session has no cart yet
	LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error)

	SaveCart(ctx context.Context, sessionID string, cart *domain.Cart) error

	// UpdateCart loads the cart (a new one when missing), applies fn and saves it
	// as one atomic step. It fails with domain.ErrCommitInProgress while the commit
	// lock is held, and fn's error aborts the update without saving.
	UpdateCart(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error)

	// AcquireCommitLock marks a commit in flight, returns false if one already is
	AcquireCommitLock(ctx context.Context, sessionID, token string) (bool, error)

	// ReleaseCommitLock removes the lock only if it still holds token
	ReleaseCommitLock(ctx context.Context, sessionID, token string) error

	CommitInProgress(ctx context.Context, sessionID string) (bool, error)
}

type SummaryCache interface {
	// GetSummary returns nil on a cache miss
	GetSummary(ctx context.Context) (*domain.SalesSummary, error)

	SetSummary(ctx context.Context, summary *domain.SalesSummary) error

	InvalidateSummary(ctx context.Context) error
}
