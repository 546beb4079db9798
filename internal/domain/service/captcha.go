package service

import "context"

// CaptchaVerifier validates a CAPTCHA token against the third-party
// verification service. The caller's IP is forwarded for stricter checks.
// A rejected token yields domainerrors.ErrCaptchaFailed; network or service
// trouble yields an ordinary error.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}
