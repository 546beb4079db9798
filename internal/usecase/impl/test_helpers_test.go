package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"critiqit/config"
	"critiqit/internal/domain/entity"
	"critiqit/internal/domain/lifecycle"
	"critiqit/internal/usecase"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string {
	return &s
}

func validSession(userID uuid.UUID) *entity.Session {
	return &entity.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		UserID:       userID,
		Email:        "alice@example.com",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserMetadata: map[string]any{"full_name": "Alice Metadata"},
	}
}

// fakeAuthProvider is a controllable in-memory stand-in for the hosted auth
// backend.
type fakeAuthProvider struct {
	mu         sync.Mutex
	session    *entity.Session
	sessionErr error
	listeners  map[int]func(entity.AuthEvent, *entity.Session)
	nextID     int

	startCalls int
	stopCalls  int

	signUpErr    error
	signInErr    error
	verifyOTPErr error
	resendErr    error
	resetErr     error
	signOutErr   error

	// lastVerifyOTP records the arguments of the most recent VerifyOTP call.
	lastVerifyOTP []string
	signUpCalls   int
	signInCalls   int
	verifyCalls   int
}

func newFakeAuthProvider(session *entity.Session) *fakeAuthProvider {
	return &fakeAuthProvider{
		session:   session,
		listeners: make(map[int]func(entity.AuthEvent, *entity.Session)),
	}
}

func (p *fakeAuthProvider) emit(event entity.AuthEvent, session *entity.Session) {
	p.mu.Lock()
	fns := make([]func(entity.AuthEvent, *entity.Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

func (p *fakeAuthProvider) setSession(session *entity.Session) {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
}

func (p *fakeAuthProvider) GetSession(context.Context) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session, p.sessionErr
}

func (p *fakeAuthProvider) GetClaims(context.Context) (*entity.Claims, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, nil
	}

	return &entity.Claims{Subject: p.session.UserID, Email: p.session.Email}, nil
}

func (p *fakeAuthProvider) OnAuthStateChange(fn func(entity.AuthEvent, *entity.Session)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeAuthProvider) SignUp(_ context.Context, _, _, _ string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUpCalls++

	return p.session, p.signUpErr
}

func (p *fakeAuthProvider) SignInWithPassword(_ context.Context, _, _, _ string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signInCalls++
	if p.signInErr != nil {
		return nil, p.signInErr
	}

	return p.session, nil
}

func (p *fakeAuthProvider) SignInWithIDToken(_ context.Context, _, _, _ string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session, p.signInErr
}

func (p *fakeAuthProvider) OAuthAuthorizeURL(provider, redirectTo string) (string, error) {
	return "https://auth.example.com/authorize?provider=" + provider + "&redirect_to=" + redirectTo, nil
}

func (p *fakeAuthProvider) VerifyOTP(_ context.Context, otpType, email, token, captchaToken string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyCalls++
	p.lastVerifyOTP = []string{otpType, email, token, captchaToken}
	if p.verifyOTPErr != nil {
		return nil, p.verifyOTPErr
	}

	return p.session, nil
}

func (p *fakeAuthProvider) Resend(_ context.Context, _, _, _ string) error {
	return p.resendErr
}

func (p *fakeAuthProvider) ResetPasswordForEmail(_ context.Context, _, _, _ string) error {
	return p.resetErr
}

func (p *fakeAuthProvider) SetSession(_ context.Context, _, _ string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session, nil
}

func (p *fakeAuthProvider) RefreshSession(_ context.Context, _ string) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session, nil
}

func (p *fakeAuthProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil

	return p.signOutErr
}

func (p *fakeAuthProvider) StartAutoRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
}

func (p *fakeAuthProvider) StopAutoRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls++
}

func (p *fakeAuthProvider) autoRefreshCalls() (started, stopped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.startCalls, p.stopCalls
}

// fakeProfileRepo is a controllable profile store. Setting block makes
// FindByUserID wait until the channel is closed, so tests can hold a sync
// cycle in flight.
type fakeProfileRepo struct {
	mu      sync.Mutex
	record  *entity.ProfileRecord
	findErr error
	block   chan struct{}
	started chan struct{}

	findCalls   int
	lastFindID  uuid.UUID
	avatarKeys  map[uuid.UUID]string
	upsertCalls int
}

func newFakeProfileRepo(record *entity.ProfileRecord) *fakeProfileRepo {
	return &fakeProfileRepo{
		record:     record,
		avatarKeys: make(map[uuid.UUID]string),
	}
}

func (r *fakeProfileRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.ProfileRecord, error) {
	r.mu.Lock()
	r.findCalls++
	r.lastFindID = userID
	record, err := r.record, r.findErr
	block, started := r.block, r.started
	r.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}

	return record, err
}

func (r *fakeProfileRepo) Upsert(_ context.Context, _ *entity.ProfileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++

	return nil
}

func (r *fakeProfileRepo) UpdateAvatarURL(_ context.Context, userID uuid.UUID, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.avatarKeys[userID] = avatarURL

	return nil
}

func (r *fakeProfileRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.findCalls
}

// fakeCaptchaVerifier records the last verification request.
type fakeCaptchaVerifier struct {
	mu        sync.Mutex
	err       error
	lastToken string
	lastIP    string
	calls     int
}

func (v *fakeCaptchaVerifier) Verify(_ context.Context, token, remoteIP string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.lastToken = token
	v.lastIP = remoteIP

	return v.err
}

// fakeUploader is an in-memory ObjectUploader.
type fakeUploader struct {
	mu          sync.Mutex
	err         error
	lastKey     string
	lastData    []byte
	contentType string
}

func (u *fakeUploader) Upload(_ context.Context, key string, data []byte, contentType string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.lastKey = key
	u.lastData = data
	u.contentType = contentType

	return nil
}

func (u *fakeUploader) PublicURL(key string) string {
	return "https://cdn.example.com/avatars/" + key
}

// synchronizerFixtures bundles a synchronizer with its controllable
// dependencies.
type synchronizerFixtures struct {
	synchronizer usecase.CurrentUserSynchronizer
	provider     *fakeAuthProvider
	profiles     *fakeProfileRepo
	notifier     lifecycle.AppStateNotifier
	store        usecase.SessionStore
}

func createTestSynchronizer(t *testing.T, provider *fakeAuthProvider, profiles *fakeProfileRepo, seed *entity.CurrentUser) synchronizerFixtures {
	t.Helper()

	notifier := lifecycle.NewAppStateNotifier()
	store := NewSessionStore(SessionStoreParams{
		Provider: provider,
		Notifier: notifier,
		Logger:   testLogger(),
	})

	synchronizer := NewCurrentUserSynchronizer(CurrentUserSynchronizerParams{
		Sessions:    store,
		Profiles:    profiles,
		Notifier:    notifier,
		Logger:      testLogger(),
		InitialUser: seed,
	})
	t.Cleanup(synchronizer.Close)
	t.Cleanup(store.Close)

	return synchronizerFixtures{
		synchronizer: synchronizer,
		provider:     provider,
		profiles:     profiles,
		notifier:     notifier,
		store:        store,
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Supabase: &config.SupabaseConfig{
			URL:           "https://project.supabase.test",
			AnonKey:       "anon-key",
			AvatarsBucket: "avatars",
		},
		Captcha: &config.CaptchaConfig{SiteKey: "site-key", Secret: "captcha-secret"},
		OAuth:   &config.OAuthConfig{RedirectURL: "https://app.example.com/auth/callback"},
	}

	return cfg
}
