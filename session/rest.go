package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/shared"
)

// Client acquires session Credentials via POST
// {api_endpoint}/session-storage/sessions with HTTP basic auth
// (api_key, api_secret).
type Client struct {
	http *resty.Client
	log  shared.Logger
}

// NewClient builds a session.Client against apiEndpoint, authenticating
// every request with (apiKey, apiSecret) as HTTP basic auth.
func NewClient(apiEndpoint, apiKey, apiSecret string, logger shared.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, shared.NewConfigurationError(shared.ErrNoAPIKey)
	}
	if apiSecret == "" {
		return nil, shared.NewConfigurationError(shared.ErrNoAPISecret)
	}
	http := resty.New().
		SetBaseURL(apiEndpoint).
		SetBasicAuth(apiKey, apiSecret).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: http, log: logger}, nil
}

// CreateSession POSTs to /session-storage/sessions and returns the
// resulting Credentials.
func (c *Client) CreateSession(ctx context.Context) (Credentials, error) {
	var creds Credentials
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&creds).
		Post("/session-storage/sessions")
	if err != nil {
		return Credentials{}, shared.NewBootError(fmt.Errorf("session-storage request failed: %w", err))
	}
	if resp.IsError() {
		return Credentials{}, shared.NewBootError(fmt.Errorf("session-storage returned %s: %s", resp.Status(), resp.String()))
	}
	if c.log != nil {
		if exp, err := unverifiedExpiry(creds.JWTToken); err == nil {
			c.log.Debug("session credentials acquired", zap.Time("expires_at", exp))
		} else {
			c.log.Debug("session credentials acquired (no exp claim)")
		}
	}
	return creds, nil
}

// unverifiedExpiry parses the "exp" claim out of a JWT without verifying
// its signature — the token's authority is the remote service, not this
// client; the value is for debug logging only (when the session will
// expire), never for authorization decisions.
func unverifiedExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("no exp claim")
	}
	return exp.Time, nil
}
