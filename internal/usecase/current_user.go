package usecase

import (
	"context"

	"critiqit/internal/domain/entity"
)

// SyncState is the one read model UI components consume. It is replaced
// wholesale at the end of a sync cycle or at an immediate sign-out, never
// field by field.
type SyncState struct {
	// User is nil if and only if there is no valid session. A failed
	// profile fetch degrades fields but never nulls the user.
	User *entity.CurrentUser

	// IsLoading is true exactly while a sync cycle is in flight or the
	// session sits in the expired-awaiting-refresh window.
	IsLoading bool
}

// CurrentUserSynchronizer joins the session with the profile record and owns
// the published SyncState. It is the single writer; everything else reads.
type CurrentUserSynchronizer interface {
	// Snapshot returns the current state.
	Snapshot() SyncState

	// Subscribe returns a channel receiving every published state, plus a
	// cancel function. The channel is closed on Close.
	Subscribe() (<-chan SyncState, func())

	// Refresh runs a sync cycle, or attaches to one already in flight, and
	// returns the state that cycle produced. Concurrent callers share one
	// profile fetch and observe the same result. A cancelled context
	// returns the latest snapshot without aborting the underlying cycle.
	Refresh(ctx context.Context) SyncState

	// Close releases the provider and app-state subscriptions. In-flight
	// work becomes a no-op; no state is written after Close returns.
	Close()
}
