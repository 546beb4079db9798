package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"critiqit/internal/domain/entity"
	"critiqit/internal/domain/lifecycle"
	"critiqit/internal/domain/repository"
	"critiqit/internal/infra/metrics"
	"critiqit/internal/usecase"

	"go.uber.org/fx"
)

// syncCycle is one complete attempt to reconcile session + profile into a
// CurrentUser. The handle doubles as the dedup point: while it sits in
// currentUserSynchronizer.inflight, new requests attach to it instead of
// starting their own fetch.
type syncCycle struct {
	gen     uint64          // Generation the cycle belongs to; stale cycles may not publish.
	session *entity.Session // Event-supplied session, skips the session fetch when set.
	done    chan struct{}
	result  usecase.SyncState
}

// currentUserSynchronizer implements the CurrentUserSynchronizer interface.
// It is the sole writer of the published SyncState.
type currentUserSynchronizer struct {
	sessions usecase.SessionStore
	profiles repository.ProfileRepository
	metrics  *metrics.SyncMetrics
	logger   *slog.Logger

	mu        sync.Mutex
	state     usecase.SyncState
	gen       uint64 // Bumped by sign-out and Close to invalidate in-flight cycles.
	inflight  *syncCycle
	closed    bool
	subs      map[int]chan usecase.SyncState
	nextSubID int
	unsubAuth func()
	unsubApp  func()
}

// CurrentUserSynchronizerParams holds dependencies, injected by Fx.
type CurrentUserSynchronizerParams struct {
	fx.In

	Sessions usecase.SessionStore
	Profiles repository.ProfileRepository
	Notifier lifecycle.AppStateNotifier
	Metrics  *metrics.SyncMetrics `optional:"true"`
	Logger   *slog.Logger

	// InitialUser seeds the state when the server already resolved the user
	// for the first render; the redundant initial fetch is skipped then.
	InitialUser *entity.CurrentUser `optional:"true"`
}

// NewCurrentUserSynchronizer is the constructor for currentUserSynchronizer.
// It subscribes to session change events and foreground transitions and,
// unless seeded, starts the initial sync immediately.
func NewCurrentUserSynchronizer(params CurrentUserSynchronizerParams) usecase.CurrentUserSynchronizer {
	s := &currentUserSynchronizer{
		sessions: params.Sessions,
		profiles: params.Profiles,
		metrics:  params.Metrics,
		logger:   params.Logger,
		state: usecase.SyncState{
			User:      params.InitialUser,
			IsLoading: params.InitialUser == nil,
		},
		subs: make(map[int]chan usecase.SyncState),
	}

	s.unsubAuth = params.Sessions.Subscribe(s.onAuthEvent)
	s.unsubApp = params.Notifier.Subscribe(s.onAppState)

	if params.InitialUser == nil {
		go s.syncAsync(nil)
	}

	return s
}

// Snapshot returns the current state.
func (s *currentUserSynchronizer) Snapshot() usecase.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Subscribe returns a latest-value channel primed with the current state.
func (s *currentUserSynchronizer) Subscribe() (<-chan usecase.SyncState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan usecase.SyncState, 1)
	if s.closed {
		close(ch)

		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	ch <- s.state

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Refresh runs a sync cycle or attaches to the one in flight and returns the
// state that cycle produced. Both of two simultaneous callers end up waiting
// on the same cycle, so exactly one profile fetch occurs.
func (s *currentUserSynchronizer) Refresh(ctx context.Context) usecase.SyncState {
	cycle, started := s.attachOrStart(nil)
	if cycle == nil {
		return s.Snapshot()
	}

	if started {
		s.run(cycle)
	} else {
		s.metrics.DedupAttach()
	}

	select {
	case <-cycle.done:
		return cycle.result
	case <-ctx.Done():
		// The cycle keeps running; the caller just stops waiting for it.
		return s.Snapshot()
	}
}

// Close releases all subscriptions and invalidates in-flight work. No state
// is written after Close returns; a cycle resolving later is a no-op.
func (s *currentUserSynchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}
	s.closed = true
	s.gen++
	s.inflight = nil
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	unsubAuth, unsubApp := s.unsubAuth, s.unsubApp
	s.unsubAuth, s.unsubApp = nil, nil
	s.mu.Unlock()

	if unsubAuth != nil {
		unsubAuth()
	}
	if unsubApp != nil {
		unsubApp()
	}
}

// onAuthEvent is the state machine's reaction to provider pushes. Sign-out
// applies immediately and synchronously: no network round trip, and any
// in-flight cycle is invalidated so its late result cannot resurrect the
// signed-in state.
func (s *currentUserSynchronizer) onAuthEvent(event entity.AuthEvent, session *entity.Session) {
	if event.SignOutEquivalent() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()

			return
		}
		s.gen++
		s.inflight = nil
		s.publishLocked(usecase.SyncState{User: nil, IsLoading: false})
		s.mu.Unlock()

		s.metrics.ImmediateSignOut()
		s.logger.Debug("Applied immediate sign-out", slog.String("event", event.String()))

		return
	}

	// Sign-in equivalent: re-join with the session the event carried.
	go s.syncAsync(session)
}

func (s *currentUserSynchronizer) onAppState(state lifecycle.AppState) {
	if state == lifecycle.StateForeground {
		go s.syncAsync(nil)
	}
}

// syncAsync starts a cycle for event-driven triggers. When one is already in
// flight the trigger is satisfied by that cycle's result.
func (s *currentUserSynchronizer) syncAsync(hint *entity.Session) {
	cycle, started := s.attachOrStart(hint)
	if cycle == nil {
		return
	}
	if !started {
		s.metrics.DedupAttach()

		return
	}
	s.run(cycle)
}

// attachOrStart returns the in-flight cycle when there is one, otherwise
// registers a new cycle and flags the caller to run it. Returns nil after
// Close.
func (s *currentUserSynchronizer) attachOrStart(hint *entity.Session) (*syncCycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	if s.inflight != nil {
		return s.inflight, false
	}

	cycle := &syncCycle{
		gen:     s.gen,
		session: hint,
		done:    make(chan struct{}),
	}
	s.inflight = cycle

	// The previous user stays visible while the cycle runs; only the
	// loading flag flips.
	s.publishLocked(usecase.SyncState{User: s.state.User, IsLoading: true})

	return cycle, true
}

// run executes one cycle and publishes its result unless a sign-out or
// Close made the cycle stale in the meantime.
func (s *currentUserSynchronizer) run(cycle *syncCycle) {
	defer func() {
		s.mu.Lock()
		if s.inflight == cycle {
			s.inflight = nil
		}
		s.mu.Unlock()
		close(cycle.done)
	}()

	result, outcome := s.executeCycle(cycle.session)

	s.mu.Lock()
	if s.closed || cycle.gen != s.gen {
		cycle.result = s.state
		s.mu.Unlock()

		s.metrics.StaleDiscard()

		return
	}
	s.publishLocked(result)
	s.mu.Unlock()

	cycle.result = result
	s.metrics.CycleFinished(outcome)
}

// executeCycle performs the fetches of one sync cycle and computes the next
// state. It never returns an error: the passive path only ever resolves to
// a state value.
func (s *currentUserSynchronizer) executeCycle(hint *entity.Session) (usecase.SyncState, string) {
	ctx := context.Background()

	session := hint
	if session == nil {
		session = s.sessions.Current(ctx)
	}

	switch s.sessions.Classify(session, time.Now()) {
	case usecase.SessionNone:
		return usecase.SyncState{User: nil, IsLoading: false}, metrics.OutcomeSignedOut

	case usecase.SessionExpired:
		// No profile fetch against expired credentials; stay loading until
		// the provider pushes a refreshed session.
		return usecase.SyncState{User: nil, IsLoading: true}, metrics.OutcomeExpired

	default:
		profile, err := s.profiles.FindByUserID(ctx, session.UserID)
		outcome := metrics.OutcomeOK
		if err != nil {
			// Degrade, never fail the cycle: a profile-store outage must
			// not lock the user out of a valid session.
			s.logger.Warn("Profile join failed, falling back to session metadata",
				slog.Any("userID", session.UserID), slog.Any("error", err))
			profile = nil
			outcome = metrics.OutcomeDegraded
		}

		return usecase.SyncState{User: entity.NewCurrentUser(session, profile), IsLoading: false}, outcome
	}
}

// publishLocked replaces the state wholesale and fans it out. Callers hold
// s.mu. Slow subscribers keep only the latest value.
func (s *currentUserSynchronizer) publishLocked(state usecase.SyncState) {
	s.state = state
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
