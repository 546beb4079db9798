package impl

import (
	"context"
	"log/slog"
	"strings"

	"critiqit/config"
	"critiqit/internal/domain/entity"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/domain/service"
	"critiqit/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const defaultMinPasswordLength = 8

// accountService implements the AccountUsecase interface. It orchestrates
// the mutating auth actions: local validation first (so obviously bad input
// never costs a round trip), CAPTCHA pre-flight guard, then the provider
// call with its error surfaced verbatim.
type accountService struct {
	provider          service.AuthProvider
	captcha           service.CaptchaVerifier
	redirectURL       string
	minPasswordLength int
	logger            *slog.Logger
}

// AccountServiceParams holds dependencies for accountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	Provider service.AuthProvider
	Captcha  service.CaptchaVerifier
	Config   *config.Config
	Logger   *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	minLength := defaultMinPasswordLength
	if params.Config.Auth != nil && params.Config.Auth.MinPasswordLength > 0 {
		minLength = params.Config.Auth.MinPasswordLength
	}

	redirectURL := ""
	if params.Config.OAuth != nil {
		redirectURL = params.Config.OAuth.RedirectURL
	}

	return &accountService{
		provider:          params.Provider,
		captcha:           params.Captcha,
		redirectURL:       redirectURL,
		minPasswordLength: minLength,
		logger:            params.Logger,
	}
}

// SignUp validates the sign-up form and registers the account.
func (srv *accountService) SignUp(ctx context.Context, input *usecase.SignUpInput) (*entity.Session, error) {
	if input == nil {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("sign-up input is required")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("email and password are required")
	}
	if input.Password != input.ConfirmPassword {
		return nil, errors.WithStack(domainerrors.ErrPasswordMismatch)
	}
	if len(input.Password) < srv.minPasswordLength {
		return nil, errors.WithStack(domainerrors.ErrPasswordTooShort)
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return nil, err
	}

	session, err := srv.provider.SignUp(ctx, email, input.Password, input.CaptchaToken)
	if err != nil {
		srv.logger.Warn("Sign-up rejected by provider", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "sign up failed")
	}

	srv.logger.Info("Sign-up accepted", slog.String("email", email))

	return session, nil
}

// SignInWithPassword validates the sign-in form and establishes a session.
func (srv *accountService) SignInWithPassword(ctx context.Context, input *usecase.SignInInput) (*entity.Session, error) {
	if input == nil {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("sign-in input is required")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("email and password are required")
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return nil, err
	}

	session, err := srv.provider.SignInWithPassword(ctx, email, input.Password, input.CaptchaToken)
	if err != nil {
		srv.logger.Warn("Sign-in rejected by provider", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "sign in failed")
	}

	return session, nil
}

// SignInWithIDToken completes a native OAuth flow.
func (srv *accountService) SignInWithIDToken(ctx context.Context, input *usecase.IDTokenSignInInput) (*entity.Session, error) {
	if input == nil || input.Provider == "" || input.IDToken == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("provider and id token are required")
	}

	session, err := srv.provider.SignInWithIDToken(ctx, input.Provider, input.IDToken, input.CaptchaToken)
	if err != nil {
		return nil, errors.Wrap(err, "id token sign in failed")
	}

	return session, nil
}

// OAuthSignInURL builds the provider redirect URL for a browser OAuth flow.
func (srv *accountService) OAuthSignInURL(provider string) (string, error) {
	if provider == "" {
		return "", domainerrors.ErrValidationFailed.WrapMessage("oauth provider is required")
	}

	url, err := srv.provider.OAuthAuthorizeURL(provider, srv.redirectURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to build oauth authorize url")
	}

	return url, nil
}

// VerifyOTP verifies an emailed one-time code.
func (srv *accountService) VerifyOTP(ctx context.Context, input *usecase.VerifyOTPInput) (*entity.Session, error) {
	if err := validateOTPInput(input); err != nil {
		return nil, err
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return nil, err
	}

	session, err := srv.provider.VerifyOTP(ctx, input.Type, input.Email, input.Token, input.CaptchaToken)
	if err != nil {
		return nil, errors.Wrap(err, "otp verification failed")
	}

	return session, nil
}

// VerifyOTPWithCaptcha is the relay path: the CAPTCHA token is validated
// here, with the caller's IP, before the OTP reaches the provider. The
// provider call itself then runs without a CAPTCHA token since the check
// already happened.
func (srv *accountService) VerifyOTPWithCaptcha(ctx context.Context, input *usecase.VerifyOTPInput, remoteIP string) (*entity.Session, error) {
	if err := validateOTPInput(input); err != nil {
		return nil, err
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return nil, err
	}

	if err := srv.captcha.Verify(ctx, input.CaptchaToken, remoteIP); err != nil {
		srv.logger.Warn("CAPTCHA verification failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "captcha verification failed")
	}

	session, err := srv.provider.VerifyOTP(ctx, input.Type, input.Email, input.Token, "")
	if err != nil {
		return nil, errors.Wrap(err, "otp verification failed")
	}

	return session, nil
}

// Resend re-sends a signup or email-change OTP.
func (srv *accountService) Resend(ctx context.Context, input *usecase.ResendInput) error {
	if input == nil || input.Email == "" || input.Type == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("email and type are required")
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return err
	}

	if err := srv.provider.Resend(ctx, input.Type, input.Email, input.CaptchaToken); err != nil {
		return errors.Wrap(err, "resend failed")
	}

	return nil
}

// ResetPassword requests a password recovery email.
func (srv *accountService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if input == nil || strings.TrimSpace(input.Email) == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("email is required")
	}
	if err := requireCaptcha(input.CaptchaToken); err != nil {
		return err
	}

	if err := srv.provider.ResetPasswordForEmail(ctx, input.Email, srv.redirectURL, input.CaptchaToken); err != nil {
		return errors.Wrap(err, "password reset failed")
	}

	return nil
}

// CompleteRedirect adopts tokens delivered by an OAuth redirect or email
// deep link as the current session.
func (srv *accountService) CompleteRedirect(ctx context.Context, input *usecase.SetSessionInput) (*entity.Session, error) {
	if input == nil || input.AccessToken == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("redirect carried no access token")
	}

	session, err := srv.provider.SetSession(ctx, input.AccessToken, input.RefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to adopt redirect session")
	}

	return session, nil
}

// SignOut destroys the current session.
func (srv *accountService) SignOut(ctx context.Context) error {
	if err := srv.provider.SignOut(ctx); err != nil {
		return errors.Wrap(err, "sign out failed")
	}

	return nil
}

// requireCaptcha is the pre-flight guard: state-mutating auth calls are
// refused locally when no CAPTCHA token is attached.
func requireCaptcha(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.WithStack(domainerrors.ErrCaptchaRequired)
	}

	return nil
}

func validateOTPInput(input *usecase.VerifyOTPInput) error {
	if input == nil || input.Type == "" || input.Email == "" || input.Token == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("type, email and token are required")
	}

	return nil
}
