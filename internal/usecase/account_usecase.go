package usecase

import (
	"context"

	"critiqit/internal/domain/entity"
)

// SignUpInput carries the fields of the sign-up form.
type SignUpInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword"`
	CaptchaToken    string `json:"captchaToken"`
}

// SignInInput carries the fields of the password sign-in form.
type SignInInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	CaptchaToken string `json:"captchaToken"`
}

// IDTokenSignInInput completes a native OAuth flow with a provider ID token.
type IDTokenSignInInput struct {
	Provider     string `json:"provider" validate:"required"`
	IDToken      string `json:"idToken" validate:"required"`
	CaptchaToken string `json:"captchaToken"`
}

// VerifyOTPInput verifies an emailed one-time code.
type VerifyOTPInput struct {
	Type         string `json:"req_type" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Token        string `json:"token" validate:"required"`
	CaptchaToken string `json:"captchaToken" validate:"required"`
}

// ResendInput re-sends a signup or email-change OTP.
type ResendInput struct {
	Type         string `json:"type" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	CaptchaToken string `json:"captchaToken"`
}

// ResetPasswordInput requests a password recovery email.
type ResetPasswordInput struct {
	Email        string `json:"email" validate:"required,email"`
	CaptchaToken string `json:"captchaToken"`
}

// SetSessionInput adopts tokens delivered through a redirect or deep link.
type SetSessionInput struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken"`
}

// AccountUsecase covers the mutating auth actions behind the product's
// forms. Every method validates locally first (including the CAPTCHA
// pre-flight guard) and surfaces provider errors verbatim; nothing here is
// silently swallowed, in contrast to the passive sync path.
type AccountUsecase interface {
	SignUp(ctx context.Context, input *SignUpInput) (*entity.Session, error)
	SignInWithPassword(ctx context.Context, input *SignInInput) (*entity.Session, error)
	SignInWithIDToken(ctx context.Context, input *IDTokenSignInInput) (*entity.Session, error)

	// OAuthSignInURL builds the provider redirect URL using the configured
	// redirect target. The browser completes the flow; CompleteRedirect
	// consumes the resulting tokens.
	OAuthSignInURL(provider string) (string, error)

	VerifyOTP(ctx context.Context, input *VerifyOTPInput) (*entity.Session, error)

	// VerifyOTPWithCaptcha is the server-side relay variant: the CAPTCHA
	// token is checked against the verification service (with the caller's
	// IP) before the OTP is forwarded to the provider.
	VerifyOTPWithCaptcha(ctx context.Context, input *VerifyOTPInput, remoteIP string) (*entity.Session, error)

	Resend(ctx context.Context, input *ResendInput) error
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	CompleteRedirect(ctx context.Context, input *SetSessionInput) (*entity.Session, error)
	SignOut(ctx context.Context) error
}
