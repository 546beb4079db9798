// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"critiqit/internal/domain/entity"
	"critiqit/internal/domain/lifecycle"
	"critiqit/internal/domain/service"
	"critiqit/internal/usecase"

	"go.uber.org/fx"
)

// sessionStore implements the SessionStore interface on top of the auth
// provider. It owns no session state of its own; the provider is
// authoritative and this store only observes, classifies and forwards.
type sessionStore struct {
	provider service.AuthProvider
	logger   *slog.Logger
	unsubApp func()
}

// SessionStoreParams holds dependencies for sessionStore, injected by Fx.
type SessionStoreParams struct {
	fx.In

	Provider service.AuthProvider
	Notifier lifecycle.AppStateNotifier
	Logger   *slog.Logger
}

// NewSessionStore is the constructor for sessionStore. It ties the
// provider's auto-refresh to the app's foreground state, mirroring how the
// front ends start refreshing only while visible.
func NewSessionStore(params SessionStoreParams) usecase.SessionStore {
	store := &sessionStore{
		provider: params.Provider,
		logger:   params.Logger,
	}
	store.unsubApp = params.Notifier.Subscribe(store.onAppState)

	return store
}

// Current fetches the session from the provider, failing closed: any error
// is logged for diagnostics and reported as "no session". The passive read
// path must never throw outward.
func (s *sessionStore) Current(ctx context.Context) *entity.Session {
	session, err := s.provider.GetSession(ctx)
	if err != nil {
		s.logger.Warn("Session fetch failed, treating as signed out", slog.Any("error", err))

		return nil
	}

	return session
}

// Classify applies the expiry rule. An expired session must not drive a
// profile fetch: the credentials would be rejected and the round trip
// wasted. The caller marks loading and awaits the provider's refresh push.
func (s *sessionStore) Classify(session *entity.Session, now time.Time) usecase.SessionStatus {
	switch {
	case session == nil:
		return usecase.SessionNone
	case session.Expired(now):
		return usecase.SessionExpired
	default:
		return usecase.SessionValid
	}
}

// Subscribe forwards only the recognized event categories. Whatever the
// provider adds in the future arrives as EventOther and is dropped here, so
// downstream never sees events it cannot handle.
func (s *sessionStore) Subscribe(fn func(entity.AuthEvent, *entity.Session)) func() {
	return s.provider.OnAuthStateChange(func(event entity.AuthEvent, session *entity.Session) {
		if !event.SignInEquivalent() && !event.SignOutEquivalent() {
			s.logger.Debug("Ignoring unrecognized auth event", slog.String("event", event.String()))

			return
		}
		fn(event, session)
	})
}

// Close releases the app-state subscription.
func (s *sessionStore) Close() {
	if s.unsubApp != nil {
		s.unsubApp()
		s.unsubApp = nil
	}
}

func (s *sessionStore) onAppState(state lifecycle.AppState) {
	if state == lifecycle.StateForeground {
		s.provider.StartAutoRefresh()

		return
	}
	s.provider.StopAutoRefresh()
}
