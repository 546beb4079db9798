package handler

import (
	"log/slog"
	"net/http"

	"critiqit/internal/delivery/http/response"
	"critiqit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for the mutating auth endpoints.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// SignUp handles the registration request.
func (h *AccountHandler) SignUp(c echo.Context) error {
	var input *usecase.SignUpInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-up input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	session, err := h.uc.SignUp(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	if session == nil {
		// Email confirmation is pending; no session yet.
		return response.Success(c, http.StatusAccepted, nil, "Confirmation email sent")
	}

	return response.Success(c, http.StatusCreated, session, "Account created")
}

// Login handles the password sign-in request.
func (h *AccountHandler) Login(c echo.Context) error {
	var input *usecase.SignInInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	session, err := h.uc.SignInWithPassword(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, session, "Login successful")
}

// LoginWithIDToken completes a native OAuth flow.
func (h *AccountHandler) LoginWithIDToken(c echo.Context) error {
	var input *usecase.IDTokenSignInInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid ID token input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	session, err := h.uc.SignInWithIDToken(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, session, "Login successful")
}

// OAuthURL returns the provider redirect URL for a browser OAuth flow.
func (h *AccountHandler) OAuthURL(c echo.Context) error {
	url, err := h.uc.OAuthSignInURL(c.Param("provider"))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"url": url}, "")
}

// Resend re-sends a signup or email-change OTP.
func (h *AccountHandler) Resend(c echo.Context) error {
	var input *usecase.ResendInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid resend input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	if err := h.uc.Resend(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Code sent")
}

// ResetPassword requests a password recovery email.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var input *usecase.ResetPasswordInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	if err := h.uc.ResetPassword(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Recovery email sent")
}

// AdoptSession stores tokens delivered through a redirect or deep link.
func (h *AccountHandler) AdoptSession(c echo.Context) error {
	var input *usecase.SetSessionInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid session input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	session, err := h.uc.CompleteRedirect(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, session, "Session adopted")
}

// Logout terminates the current session.
func (h *AccountHandler) Logout(c echo.Context) error {
	if err := h.uc.SignOut(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Signed out")
}
