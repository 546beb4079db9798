// Package captcha implements CAPTCHA token verification against the
// third-party challenge service.
package captcha

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"critiqit/config"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/domain/service"

	"github.com/pkg/errors"
)

const defaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// turnstileVerifier implements the CaptchaVerifier interface against the
// Turnstile siteverify endpoint.
type turnstileVerifier struct {
	secret    string
	verifyURL string
	http      *http.Client
	logger    *slog.Logger
}

// NewTurnstileVerifier is the constructor for turnstileVerifier.
func NewTurnstileVerifier(cfg *config.Config, logger *slog.Logger) (service.CaptchaVerifier, error) {
	if cfg.Captcha == nil || cfg.Captcha.Secret == "" {
		return nil, errors.New("captcha secret must be configured")
	}

	verifyURL := cfg.Captcha.VerifyURL
	if verifyURL == "" {
		verifyURL = defaultVerifyURL
	}

	return &turnstileVerifier{
		secret:    cfg.Captcha.Secret,
		verifyURL: verifyURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}, nil
}

type verifyOutcome struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a challenge token, forwarding the caller's IP for the
// service's own abuse heuristics.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build siteverify request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "siteverify request failed")
	}
	defer resp.Body.Close()

	var outcome verifyOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return errors.Wrap(err, "failed to decode siteverify response")
	}

	if !outcome.Success {
		v.logger.Warn("CAPTCHA token rejected", slog.Any("errorCodes", outcome.ErrorCodes))

		return errors.WithStack(domainerrors.ErrCaptchaFailed)
	}

	return nil
}
