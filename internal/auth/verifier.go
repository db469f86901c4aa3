package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for missing, malformed or expired tokens.
// Authentication failures are terminal: the caller must re-authenticate.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the resolved caller identity from a verified bearer token.
type Identity struct {
	AuthID string `json:"auth_id"`
	Email  string `json:"email"`
}

// TokenVerifier resolves a bearer token to an Identity or rejects it.
// Token issuance is out of scope; this system only verifies tokens against
// the external identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// lookupRequest/lookupResponse follow the identity provider's
// accounts:lookup wire shape.
type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
	} `json:"users"`
}

type lookupError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityClient verifies tokens with the external identity provider over
// HTTP. Verification failures are not retried; only transport errors are.
type IdentityClient struct {
	httpClient *resty.Client
	verifyURL  string
	apiKey     string
	logger     *zap.Logger
}

func NewIdentityClient(verifyURL, apiKey string, logger *zap.Logger) *IdentityClient {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &IdentityClient{
		httpClient: client,
		verifyURL:  verifyURL,
		apiKey:     apiKey,
		logger:     logger,
	}
}

var _ TokenVerifier = (*IdentityClient)(nil)

// Verify resolves the token via the provider's lookup endpoint.
func (c *IdentityClient) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var result lookupResponse
	var apiErr lookupError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(lookupRequest{IDToken: token}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.verifyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}

	if resp.IsError() {
		c.logger.Warn("Token verification rejected by identity provider",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("provider_message", apiErr.Error.Message),
		)
		return nil, ErrInvalidToken
	}

	if len(result.Users) == 0 || result.Users[0].LocalID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		AuthID: result.Users[0].LocalID,
		Email:  result.Users[0].Email,
	}, nil
}
