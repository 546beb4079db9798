// Package supabase implements the provider-facing adapters: the GoTrue auth
// client, the PostgREST profile repository and the storage uploader. Each
// speaks plain HTTP against the hosted backend.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"critiqit/config"
	domainerrors "critiqit/internal/domain/errors"

	"github.com/pkg/errors"
)

const requestTimeout = 15 * time.Second

// Client is the shared HTTP transport for all Supabase endpoints. The anon
// key authenticates the project; per-user authorization is added by the
// callers that hold a session.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient is the constructor for Client.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.Supabase == nil || cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, errors.New("supabase url and anon key must be configured")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.Supabase.URL, "/"),
		anonKey: cfg.Supabase.AnonKey,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}, nil
}

// BaseURL returns the project base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiError is the error envelope shared by the auth and rest endpoints.
type apiError struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}

	return "unknown provider error"
}

// do performs one JSON request. A non-2xx auth response is decoded into an
// AuthAPIError so callers can surface the provider's message verbatim.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("apikey", c.anonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var decoded apiError
		_ = json.Unmarshal(payload, &decoded)
		c.logger.Debug("Provider rejected request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", decoded.ErrorCode))

		return errors.WithStack(domainerrors.NewAuthAPIError(resp.StatusCode, decoded.ErrorCode, decoded.text()))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return errors.Wrap(err, "failed to decode response body")
		}
	}

	return nil
}
