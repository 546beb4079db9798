package supabase

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"critiqit/config"
	"critiqit/internal/domain/entity"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultRefreshMargin   = time.Minute
	defaultRefreshInterval = 30 * time.Second
)

// gotrueSecurity carries the CAPTCHA token the provider checks on mutating
// calls.
type gotrueSecurity struct {
	CaptchaToken string `json:"captcha_token,omitempty"`
}

// sessionPayload is the provider's session envelope.
type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	} `json:"user"`
}

func (p *sessionPayload) toEntity(now time.Time) (*entity.Session, error) {
	userID, err := uuid.Parse(p.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "provider returned an invalid user id")
	}

	expiresAt := time.Unix(p.ExpiresAt, 0)
	if p.ExpiresAt == 0 {
		expiresAt = now.Add(time.Duration(p.ExpiresIn) * time.Second)
	}

	return &entity.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		UserID:       userID,
		Email:        p.User.Email,
		ExpiresAt:    expiresAt,
		UserMetadata: p.User.UserMetadata,
	}, nil
}

// AuthClient implements the AuthProvider interface against the hosted auth
// endpoints. It holds the one current session for this app instance and
// emits auth-state-change events to registered listeners.
type AuthClient struct {
	api             *Client
	logger          *slog.Logger
	refreshMargin   time.Duration
	refreshInterval time.Duration

	mu          sync.Mutex
	session     *entity.Session
	listeners   map[int]func(entity.AuthEvent, *entity.Session)
	nextID      int
	stopRefresh chan struct{} // Non-nil while the auto-refresh loop runs.
}

// NewAuthClient is the constructor for AuthClient.
func NewAuthClient(api *Client, cfg *config.Config, logger *slog.Logger) service.AuthProvider {
	margin, interval := defaultRefreshMargin, defaultRefreshInterval
	if cfg.Auth != nil {
		if cfg.Auth.AutoRefreshMargin > 0 {
			margin = cfg.Auth.AutoRefreshMargin
		}
		if cfg.Auth.AutoRefreshInterval > 0 {
			interval = cfg.Auth.AutoRefreshInterval
		}
	}

	return &AuthClient{
		api:             api,
		logger:          logger,
		refreshMargin:   margin,
		refreshInterval: interval,
		listeners:       make(map[int]func(entity.AuthEvent, *entity.Session)),
	}
}

// GetSession returns a copy of the currently held session, or nil when
// signed out. The copy may already be expired; callers apply the expiry rule.
func (c *AuthClient) GetSession(_ context.Context) (*entity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, nil
	}
	copied := *c.session

	return &copied, nil
}

// GetClaims decodes the identity assertions of the current session.
func (c *AuthClient) GetClaims(ctx context.Context) (*entity.Claims, error) {
	session, _ := c.GetSession(ctx)
	if session == nil {
		return nil, errors.WithStack(domainerrors.ErrSessionMissing)
	}

	return entity.ParseClaims(session.AccessToken)
}

// OnAuthStateChange registers a listener for session change events.
func (c *AuthClient) OnAuthStateChange(fn func(entity.AuthEvent, *entity.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignUp registers an account. When email confirmation is required the
// provider returns no tokens; the session stays nil until the OTP verifies.
func (c *AuthClient) SignUp(ctx context.Context, email, password, captchaToken string) (*entity.Session, error) {
	body := map[string]any{
		"email":                email,
		"password":             password,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	var payload sessionPayload
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &payload); err != nil {
		return nil, err
	}
	if payload.AccessToken == "" {
		return nil, nil
	}

	return c.adoptPayload(&payload, entity.EventSignedIn)
}

// SignInWithPassword performs the password grant.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password, captchaToken string) (*entity.Session, error) {
	body := map[string]any{
		"email":                email,
		"password":             password,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	var payload sessionPayload
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil, body, &payload); err != nil {
		return nil, err
	}

	return c.adoptPayload(&payload, entity.EventSignedIn)
}

// SignInWithIDToken exchanges a native OAuth ID token for a session.
func (c *AuthClient) SignInWithIDToken(ctx context.Context, provider, idToken, captchaToken string) (*entity.Session, error) {
	body := map[string]any{
		"provider":             provider,
		"id_token":             idToken,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	var payload sessionPayload
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=id_token", nil, body, &payload); err != nil {
		return nil, err
	}

	return c.adoptPayload(&payload, entity.EventSignedIn)
}

// OAuthAuthorizeURL builds the browser redirect URL for an OAuth flow.
func (c *AuthClient) OAuthAuthorizeURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", errors.New("oauth provider must not be empty")
	}

	query := url.Values{}
	query.Set("provider", provider)
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	return c.api.BaseURL() + "/auth/v1/authorize?" + query.Encode(), nil
}

// VerifyOTP verifies an emailed one-time code.
func (c *AuthClient) VerifyOTP(ctx context.Context, otpType, email, token, captchaToken string) (*entity.Session, error) {
	body := map[string]any{
		"type":                 otpType,
		"email":                email,
		"token":                token,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	var payload sessionPayload
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/verify", nil, body, &payload); err != nil {
		return nil, err
	}

	return c.adoptPayload(&payload, entity.EventSignedIn)
}

// Resend re-sends a signup or email-change OTP.
func (c *AuthClient) Resend(ctx context.Context, otpType, email, captchaToken string) error {
	body := map[string]any{
		"type":                 otpType,
		"email":                email,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	return c.api.do(ctx, http.MethodPost, "/auth/v1/resend", nil, body, nil)
}

// ResetPasswordForEmail requests a password recovery email.
func (c *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo, captchaToken string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	body := map[string]any{
		"email":                email,
		"gotrue_meta_security": gotrueSecurity{CaptchaToken: captchaToken},
	}

	return c.api.do(ctx, http.MethodPost, path, nil, body, nil)
}

// SetSession adopts tokens obtained out of band. The session shape is
// reconstructed from the access token's claims; no network call is needed.
func (c *AuthClient) SetSession(_ context.Context, accessToken, refreshToken string) (*entity.Session, error) {
	claims, err := entity.ParseClaims(accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "redirect tokens are not usable")
	}

	session := &entity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       claims.Subject,
		Email:        claims.Email,
		ExpiresAt:    claims.ExpiresAt,
		UserMetadata: claims.UserMetadata,
	}
	c.adopt(session, entity.EventSignedIn)

	return session, nil
}

// RefreshSession exchanges the refresh token for a replacement session.
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*entity.Session, error) {
	body := map[string]any{"refresh_token": refreshToken}

	var payload sessionPayload
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", nil, body, &payload); err != nil {
		return nil, err
	}

	return c.adoptPayload(&payload, entity.EventTokenRefreshed)
}

// SignOut destroys the session. The local session is cleared even when the
// revocation call fails; holding on to rejected credentials helps nobody.
func (c *AuthClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	c.emit(entity.EventSignedOut, nil)

	if session == nil {
		return nil
	}

	headers := map[string]string{"Authorization": "Bearer " + session.AccessToken}
	if err := c.api.do(ctx, http.MethodPost, "/auth/v1/logout", headers, struct{}{}, nil); err != nil {
		c.logger.Warn("Server-side sign-out failed after local sign-out", slog.Any("error", err))

		return err
	}

	return nil
}

// StartAutoRefresh begins refreshing the session ahead of expiry. Idempotent.
func (c *AuthClient) StartAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopRefresh != nil {
		return
	}
	stop := make(chan struct{})
	c.stopRefresh = stop

	go c.refreshLoop(stop)
}

// StopAutoRefresh pauses the refresh loop. Idempotent.
func (c *AuthClient) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopRefresh == nil {
		return
	}
	close(c.stopRefresh)
	c.stopRefresh = nil
}

func (c *AuthClient) refreshLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.refreshIfNeeded()
		}
	}
}

// refreshIfNeeded refreshes once the session enters the margin before its
// expiry. A provider rejection of the refresh token means the session is
// gone for good, which surfaces as a sign-out event.
func (c *AuthClient) refreshIfNeeded() {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return
	}
	if time.Now().Before(session.ExpiresAt.Add(-c.refreshMargin)) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if _, err := c.RefreshSession(ctx, session.RefreshToken); err != nil {
		var authErr *domainerrors.AuthAPIError
		if errors.As(err, &authErr) && authErr.Status < http.StatusInternalServerError {
			c.logger.Warn("Refresh token rejected, signing out", slog.Any("error", err))
			c.mu.Lock()
			c.session = nil
			c.mu.Unlock()
			c.emit(entity.EventSignedOut, nil)

			return
		}
		// Transient trouble; the next tick retries.
		c.logger.Warn("Session refresh failed", slog.Any("error", err))
	}
}

func (c *AuthClient) adoptPayload(payload *sessionPayload, event entity.AuthEvent) (*entity.Session, error) {
	session, err := payload.toEntity(time.Now())
	if err != nil {
		return nil, err
	}
	c.adopt(session, event)

	return session, nil
}

func (c *AuthClient) adopt(session *entity.Session, event entity.AuthEvent) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.emit(event, session)
}

func (c *AuthClient) emit(event entity.AuthEvent, session *entity.Session) {
	c.mu.Lock()
	fns := make([]func(entity.AuthEvent, *entity.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
