package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OIDCIssuer is the IssuerClient backed by an OpenID Connect provider.
// Discovery happens on first use and is cached once it succeeds.
type OIDCIssuer struct {
	cfg        config.OIDC
	httpClient *http.Client
	nowTime    func() time.Time

	mu           sync.Mutex
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// OIDCIssuerOption defines a function type to modify the OIDCIssuer instance.
type OIDCIssuerOption func(*OIDCIssuer)

// WithHTTPClient sets the client used for discovery, keys and the token endpoint.
func WithHTTPClient(c *http.Client) OIDCIssuerOption {
	return func(i *OIDCIssuer) {
		i.httpClient = c
	}
}

// WithIssuerNowTime sets the now time function (primarily for testing)
func WithIssuerNowTime(nowFunc func() time.Time) OIDCIssuerOption {
	return func(i *OIDCIssuer) {
		i.nowTime = nowFunc
	}
}

func NewOIDCIssuer(cfg config.OIDC, options ...OIDCIssuerOption) (*OIDCIssuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[NewOIDCIssuer] %w", err)
	}
	i := &OIDCIssuer{
		cfg:     cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.httpClient == nil {
		c, err := newIssuerHTTPClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("[NewOIDCIssuer] %w", err)
		}
		i.httpClient = c
	}
	return i, nil
}

func newIssuerHTTPClient(cfg config.OIDC) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAFile != "" || cfg.InsecureSkipVerify {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CAFile != "" {
			pem, err := os.ReadFile(cfg.CAFile)
			if err != nil {
				return nil, fmt.Errorf("reading CA file: %w", err)
			}
			pool, err := x509.SystemCertPool()
			if err != nil {
				pool = x509.NewCertPool()
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
			}
			tlsConfig.RootCAs = pool
		}
		tlsConfig.InsecureSkipVerify = cfg.InsecureSkipVerify // #nosec G402 -- opt-in for development identity providers
		transport.TLSClientConfig = tlsConfig
	}
	return &http.Client{Transport: transport, Timeout: cfg.ExchangeTimeout}, nil
}

// discover resolves the provider metadata. Failures are not cached, so the
// next login tries again.
func (i *OIDCIssuer) discover(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.oauth2Config != nil {
		return i.oauth2Config, i.verifier, nil
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, i.httpClient), i.cfg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrIssuerUnavailable, err)
	}

	// Fixed auth style: auto-detection resends every failed token request.
	endpoint := provider.Endpoint()
	i.oauth2Config = &oauth2.Config{
		ClientID:     i.cfg.ClientID,
		ClientSecret: i.cfg.ClientSecret,
		RedirectURL:  i.cfg.RedirectURL,
		Scopes:       i.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoint.AuthURL,
			TokenURL:  endpoint.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	// go-oidc compares exp against Now, so moving Now back by the tolerance
	// accepts tokens that expired less than the tolerance ago.
	i.verifier = provider.Verifier(&oidc.Config{
		ClientID: i.cfg.ClientID,
		Now: func() time.Time {
			return i.nowTime().Add(-i.cfg.ClockTolerance)
		},
	})

	log.Info().Str("issuer", i.cfg.Issuer).Msg("OIDC provider discovered")
	return i.oauth2Config, i.verifier, nil
}

func (i *OIDCIssuer) AuthCodeURL(ctx context.Context, req AuthRequest) (string, error) {
	oauth2Config, _, err := i.discover(ctx)
	if err != nil {
		return "", err
	}
	return oauth2Config.AuthCodeURL(req.State,
		oidc.Nonce(req.Nonce),
		oauth2.S256ChallengeOption(req.CodeVerifier),
	), nil
}

// Exchange trades code for tokens and verifies the ID token. Transport
// errors and 5xx responses are retried a bounded number of times; a 4xx
// from the token endpoint is final. The whole exchange is bounded by the
// configured timeout and by ctx.
func (i *OIDCIssuer) Exchange(ctx context.Context, code string, req AuthRequest) (*Identity, error) {
	oauth2Config, verifier, err := i.discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.ExchangeTimeout)
	defer cancel()
	ctx = oidc.ClientContext(ctx, i.httpClient)

	attempt := 0
	tok, err := backoff.Retry(ctx, func() (*oauth2.Token, error) {
		attempt++
		tok, err := oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(req.CodeVerifier))
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return tok, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(i.cfg.ExchangeRetryDelay)),
		backoff.WithMaxTries(uint(i.cfg.ExchangeRetries+1)), // #nosec G115 -- retries are validated non-negative
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", d).Msg("Code exchange failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}
	return i.verifyIDToken(ctx, verifier, rawIDToken, req.Nonce)
}

func (i *OIDCIssuer) verifyIDToken(ctx context.Context, verifier *oidc.IDTokenVerifier, rawIDToken, nonce string) (*Identity, error) {
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIDTokenInvalid, err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, ErrNonceMismatch
	}
	if idToken.IssuedAt.After(i.nowTime().Add(i.cfg.ClockTolerance)) {
		return nil, ErrIssuedInFuture
	}

	var claims struct {
		Email  string   `json:"email"`
		Name   string   `json:"name"`
		Groups []string `json:"groups"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding ID token claims: %w", err)
	}

	return &Identity{
		Subject:   idToken.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Groups:    claims.Groups,
		IDToken:   rawIDToken,
		ExpiresAt: idToken.Expiry,
	}, nil
}
