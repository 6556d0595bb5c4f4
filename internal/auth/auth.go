// Package auth exchanges a service-account key for a short-lived bearer
// token scoped to the read-only management API, for instances that cannot
// use metadata delegation.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/endpoints-tools/config-fetcher/internal/serviceconfig"
	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

const (
	managementScope = "https://www.googleapis.com/auth/service.management.readonly"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionLifetime = time.Hour
)

// serviceAccountKey is the subset of a key file the exchange needs.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// TokenSource produces bearer tokens from a service-account key file.
type TokenSource struct {
	doer    transport.Doer
	keyPath string
	now     func() time.Time
}

// TokenSourceOption configures TokenSource behaviour.
type TokenSourceOption func(*TokenSource)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) TokenSourceOption {
	return func(s *TokenSource) {
		s.now = clock
	}
}

// NewTokenSource constructs a TokenSource reading the key at keyPath.
func NewTokenSource(doer transport.Doer, keyPath string, opts ...TokenSourceOption) *TokenSource {
	s := &TokenSource{
		doer:    doer,
		keyPath: keyPath,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token signs a JWT assertion with the key and exchanges it at the key's
// token endpoint for an access token.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	key, err := loadKey(s.keyPath)
	if err != nil {
		return "", err
	}

	assertion, err := signAssertion(key, s.now())
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	resp, err := s.doer.PostForm(ctx, key.TokenURI, nil, form)
	if err != nil {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"failed to exchange service account assertion (url %s): %v", key.TokenURI, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"service account token exchange failed (status code %d, reason %s, url %s)",
			resp.StatusCode, resp.Reason, key.TokenURI)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil || payload.AccessToken == "" {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"invalid token exchange response (url %s)", key.TokenURI)
	}
	return payload.AccessToken, nil
}

func loadKey(path string) (*serviceAccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" || key.TokenURI == "" {
		return nil, fmt.Errorf("service account key %s is missing client_email, private_key, or token_uri", path)
	}
	return &key, nil
}

type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func signAssertion(key *serviceAccountKey, now time.Time) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse service account private key: %w", err)
	}

	claims := assertionClaims{
		Scope: managementScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    key.ClientEmail,
			Audience:  jwt.ClaimStrings{key.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("sign service account assertion: %w", err)
	}
	return signed, nil
}
