package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/domain/session"
	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/usecase"
)

const defaultTimeout = 5 * time.Second

type ProviderConfig struct {
	HTTPClient *http.Client
	TokenURL   string
	ClientID   string
	Timeout    time.Duration
	Logger     *logging.Logger
}

// Provider exchanges refresh tokens against the auth service's OAuth token
// endpoint. Definitive rejections (401/403, invalid_grant) surface as
// usecase.ErrUnauthorized; everything else is usecase.ErrDependencyUnavailable
// so callers can retry without dropping the session.
type Provider struct {
	httpClient *http.Client
	tokenURL   string
	clientID   string
	logger     *logging.Logger
}

func NewProvider(cfg ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Provider{
		httpClient: httpClient,
		tokenURL:   strings.TrimSpace(cfg.TokenURL),
		clientID:   strings.TrimSpace(cfg.ClientID),
		logger:     logger,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return session.Tokens{}, fmt.Errorf("%w: refresh token is required", usecase.ErrUnauthorized)
	}
	if p.tokenURL == "" {
		return session.Tokens{}, fmt.Errorf("%w: token endpoint is not configured", usecase.ErrDependencyUnavailable)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if p.clientID != "" {
		form.Set("client_id", p.clientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return session.Tokens{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("%w: refresh request failed: %v", usecase.ErrDependencyUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return session.Tokens{}, fmt.Errorf("%w: read refresh response: %v", usecase.ErrDependencyUnavailable, err)
	}

	var decoded tokenResponse
	decodeErr := sonic.Unmarshal(raw, &decoded)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return session.Tokens{}, fmt.Errorf("%w: refresh token rejected (status=%d)", usecase.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest && decodeErr == nil && decoded.Error == "invalid_grant":
		return session.Tokens{}, fmt.Errorf("%w: refresh token revoked", usecase.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		p.logger.WarnContext(ctx, "auth refresh returned unexpected status", "status", resp.StatusCode)
		return session.Tokens{}, fmt.Errorf("%w: auth service status=%d", usecase.ErrDependencyUnavailable, resp.StatusCode)
	case decodeErr != nil:
		return session.Tokens{}, fmt.Errorf("%w: malformed token response: %v", usecase.ErrDependencyUnavailable, decodeErr)
	case decoded.AccessToken == "" || decoded.RefreshToken == "":
		return session.Tokens{}, fmt.Errorf("%w: token response missing tokens", usecase.ErrDependencyUnavailable)
	}

	return session.Tokens{
		AccessToken:     decoded.AccessToken,
		RefreshToken:    decoded.RefreshToken,
		AccessExpiresAt: session.AccessExpiry(decoded.AccessToken),
	}, nil
}
