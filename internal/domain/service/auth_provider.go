// Package service defines interfaces for domain services whose concrete
// implementations live in the infra layer.
package service

import (
	"context"

	"critiqit/internal/domain/entity"
)

// OTP request types accepted by the provider's verify endpoint.
const (
	OTPTypeSignup   = "signup"
	OTPTypeEmail    = "email"
	OTPTypeRecovery = "recovery"
)

// AuthProvider is the interface to the hosted authentication backend.
// Mutating calls accept an optional CAPTCHA token which the provider checks
// server-side; sessions are issued, replaced and destroyed exclusively by the
// provider and observed here.
type AuthProvider interface {
	// GetSession returns the currently held session, or nil when signed out.
	// The session may already be expired; callers decide what that means.
	GetSession(ctx context.Context) (*entity.Session, error)

	// GetClaims decodes the identity assertions of the current session.
	GetClaims(ctx context.Context) (*entity.Claims, error)

	// OnAuthStateChange registers for push notifications of session changes.
	// The returned function removes the listener.
	OnAuthStateChange(fn func(entity.AuthEvent, *entity.Session)) (unsubscribe func())

	SignUp(ctx context.Context, email, password, captchaToken string) (*entity.Session, error)
	SignInWithPassword(ctx context.Context, email, password, captchaToken string) (*entity.Session, error)
	SignInWithIDToken(ctx context.Context, provider, idToken, captchaToken string) (*entity.Session, error)

	// OAuthAuthorizeURL builds the browser redirect URL for an OAuth flow.
	// The flow completes out of process; SetSession consumes the result.
	OAuthAuthorizeURL(provider, redirectTo string) (string, error)

	VerifyOTP(ctx context.Context, otpType, email, token, captchaToken string) (*entity.Session, error)
	Resend(ctx context.Context, otpType, email, captchaToken string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo, captchaToken string) error

	// SetSession adopts tokens obtained out of band (OAuth redirect, email
	// deep link) as the current session.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*entity.Session, error)

	// RefreshSession exchanges the refresh token for a replacement session.
	RefreshSession(ctx context.Context, refreshToken string) (*entity.Session, error)

	SignOut(ctx context.Context) error

	// StartAutoRefresh begins refreshing the session ahead of expiry while
	// the app is foregrounded; StopAutoRefresh pauses it. Both are idempotent.
	StartAutoRefresh()
	StopAutoRefresh()
}
