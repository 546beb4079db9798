// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"
	"time"

	"critiqit/internal/domain/entity"
)

// SessionStatus is the store's judgement of a session value.
type SessionStatus int

const (
	// SessionNone means there is no session at all.
	SessionNone SessionStatus = iota
	// SessionValid means the session exists and has not expired.
	SessionValid
	// SessionExpired means the session exists but passed its expiry; it must
	// not be used to trigger a profile fetch. A refresh event is expected.
	SessionExpired
)

// SessionStore produces the single authoritative session value and notifies
// of changes. It is the only component that talks to the auth provider's
// read side; errors from the provider are logged and treated as signed out.
type SessionStore interface {
	// Current fetches the session, failing closed: any provider error is
	// logged and reported as no session.
	Current(ctx context.Context) *entity.Session

	// Classify applies the expiry rule to a session value.
	Classify(session *entity.Session, now time.Time) SessionStatus

	// Subscribe registers for recognized session change events. Events the
	// provider may add in the future are filtered out before fn is called.
	Subscribe(fn func(entity.AuthEvent, *entity.Session)) (unsubscribe func())

	// Close releases the app-state subscription. No events fire afterwards.
	Close()
}
