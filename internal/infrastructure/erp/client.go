// Package erp contains the adapters for each supported ERP system plus the
// registry that resolves them. Adapters hold no per-tenant state; every call
// receives a fully assembled Connection and talks to the upstream within the
// probe timeout.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/erpsync/backend/internal/domain/connector"
)

// maxResponseSize caps how much of an upstream response is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: connector.ProbeTimeout}
}

// callContext bounds an adapter call at the probe timeout even when the
// caller's context is looser
func callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, connector.ProbeTimeout)
}

// classifyTransport maps a transport-level error onto the adapter error set.
// Timeouts and cancellations are transient; everything else is a rejection.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return connector.ErrProbeTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return connector.ErrProbeTimeout
	}
	return fmt.Errorf("%w: %v", connector.ErrProbeRejected, err)
}

// doJSON sends a request with a JSON body (nil for none) and returns the raw
// response body. Status codes of 400 and above are rejections.
func doJSON(ctx context.Context, client *http.Client, method, endpoint string, body any, decorate func(*http.Request)) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", connector.ErrProbeRejected, resp.StatusCode)
	}
	return raw, nil
}

// doForm posts URL-encoded form values, used by the OAuth refresh grants
func doForm(ctx context.Context, client *http.Client, endpoint string, values url.Values, decorate func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", connector.ErrTokenRefreshRejected, resp.StatusCode)
	}
	return raw, nil
}

// oauthTokenResponse is the common shape of an OAuth token grant response
type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (r *oauthTokenResponse) toToken(previousRefresh string, now time.Time) *connector.OAuthToken {
	refresh := r.RefreshToken
	if refresh == "" {
		// Some providers only rotate the refresh token occasionally
		refresh = previousRefresh
	}
	return &connector.OAuthToken{
		AccessToken:  r.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// refreshGrant runs a refresh_token grant against the connection's token URL
func refreshGrant(ctx context.Context, client *http.Client, conn connector.Connection, decorate func(*http.Request)) (*connector.OAuthToken, error) {
	if conn.Token == nil || conn.Token.RefreshToken == "" {
		return nil, connector.ErrInvalidCredentials
	}
	if conn.OAuthTokenURL == "" {
		return nil, connector.ErrInvalidCredentials
	}

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", conn.Token.RefreshToken)
	if conn.OAuthScopes != "" {
		values.Set("scope", conn.OAuthScopes)
	}

	raw, err := doForm(ctx, client, conn.OAuthTokenURL, values, decorate)
	if err != nil {
		return nil, err
	}

	var tokenResp oauthTokenResponse
	if err := json.Unmarshal(raw, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return nil, connector.ErrTokenRefreshRejected
	}
	return tokenResp.toToken(conn.Token.RefreshToken, time.Now()), nil
}
