package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"enclaveai-backend/internal/config"
)

// NewAuth builds the token validator for the hosted auth provider. With a
// shared JWT secret configured, tokens are verified locally (HS256, the
// hosted provider's default). With an issuer URL instead, verification
// goes through OIDC discovery.
func NewAuth(ctx context.Context, cfg config.BackendConfig) (Auth, error) {
	if cfg.JWTSecret != "" {
		return &jwtAuth{secret: []byte(cfg.JWTSecret)}, nil
	}
	if cfg.IssuerURL != "" {
		return newOIDCAuth(ctx, cfg)
	}
	return nil, fmt.Errorf("backend: either jwt_secret or issuer_url must be configured")
}

type jwtAuth struct {
	secret []byte
}

func (a *jwtAuth) GetSession(ctx context.Context, accessToken string) (*AuthSession, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return &AuthSession{UserID: sub, Email: email}, nil
}

// OIDCAuth validates tokens against the hosted provider's OIDC issuer and
// also carries the authorization-code flow used when the dashboard signs in
// through the provider's hosted login page.
type OIDCAuth struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

func newOIDCAuth(ctx context.Context, cfg config.BackendConfig) (*OIDCAuth, error) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(initCtx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to initialize OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	})
	oauth2Config := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: provider.Endpoint(),
		Scopes:   []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return &OIDCAuth{verifier: verifier, oauth2Config: oauth2Config}, nil
}

func (a *OIDCAuth) GetSession(ctx context.Context, accessToken string) (*AuthSession, error) {
	validateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	idToken, err := a.verifier.Verify(validateCtx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &AuthSession{UserID: idToken.Subject, Email: claims.Email}, nil
}

// ExchangeCode trades an authorization code for tokens and returns the
// verified identity plus the raw token for the client to hold.
func (a *OIDCAuth) ExchangeCode(ctx context.Context, code, redirectURI string) (*AuthSession, *oauth2.Token, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg := *a.oauth2Config
	cfg.RedirectURL = redirectURI
	token, err := cfg.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: failed to exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no id_token in token response", ErrInvalidToken)
	}
	sess, err := a.GetSession(ctx, rawIDToken)
	if err != nil {
		return nil, nil, err
	}
	return sess, token, nil
}

// AuthURL returns the provider's authorization URL for the given state
func (a *OIDCAuth) AuthURL(state, redirectURI string) string {
	cfg := *a.oauth2Config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}
