// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	deliverycontext "critiqit/internal/delivery/context"
	"critiqit/internal/delivery/http/response"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/infra/metrics"
	"critiqit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OTPHandler fronts OTP verification so the CAPTCHA secret never ships to
// clients: the browser posts here, the relay checks the token server-side and
// only then forwards the code to the auth provider.
type OTPHandler struct {
	uc      usecase.AccountUsecase
	logger  *slog.Logger
	metrics *metrics.RelayMetrics
}

// NewOTPHandler is the constructor for OTPHandler, injected by Fx.
func NewOTPHandler(uc usecase.AccountUsecase, logger *slog.Logger, relayMetrics *metrics.RelayMetrics) *OTPHandler {
	return &OTPHandler{
		uc:      uc,
		logger:  logger,
		metrics: relayMetrics,
	}
}

// VerifyOTP handles the relayed OTP verification request.
func (h *OTPHandler) VerifyOTP(c echo.Context) error {
	var input *usecase.VerifyOTPInput
	if err := c.Bind(&input); err != nil {
		h.metrics.Request(strconv.Itoa(http.StatusBadRequest))

		return response.BindingError(c, "INVALID_INPUT", "Invalid OTP verification payload")
	}

	if err := c.Validate(input); err != nil {
		h.metrics.Request(strconv.Itoa(http.StatusBadRequest))

		return response.BadRequest(c, "MISSING_FIELDS", "email, token, req_type and captchaToken are required")
	}

	session, err := h.uc.VerifyOTPWithCaptcha(c.Request().Context(), input, c.RealIP())
	if err != nil {
		return h.fail(c, err)
	}

	h.metrics.Request(strconv.Itoa(http.StatusOK))

	return response.Success(c, http.StatusOK, session, "OTP verified")
}

// fail maps a verification error to its relay response. Provider errors pass
// through with their own message so the UI can show the real reason.
func (h *OTPHandler) fail(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		h.metrics.Request(strconv.Itoa(appErr.HTTPCode()))

		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	h.logger.Error("OTP relay failed",
		slog.String("error", err.Error()),
		slog.String("remoteIp", c.RealIP()),
		slog.String("requestId", deliverycontext.GetRequestID(c)),
	)
	h.metrics.Request(strconv.Itoa(http.StatusInternalServerError))

	return response.InternalServerError(c, "INTERNAL_ERROR", "OTP verification failed")
}
