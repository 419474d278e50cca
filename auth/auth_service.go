package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dashboard-auth/auth/authflowrepo"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/sessions"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/jrsteele09/go-dashboard-auth/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// stateLength and nonceLength are in random bytes before encoding.
	stateLength = 32
	nonceLength = 32

	// DefaultSessionLifetime applies when WithSessionLifetime is not used.
	DefaultSessionLifetime = 24 * time.Hour
)

// Login is the outcome of a successful login.
type Login struct {
	Claims    *token.SessionClaims
	Cookie    *sessions.SplitCookie
	ReturnURL string
}

// AuthorizationService drives the OIDC authorization code flow and the
// direct token login, and turns the verified identity into a session.
type AuthorizationService struct {
	issuer          IssuerClient
	flows           authflowrepo.Repo
	codec           *sessions.Codec
	reviewer        users.TokenReviewer
	sessionLifetime time.Duration
	nowTime         func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithTokenReviewer asks the cluster API to confirm bearer tokens. It is
// required for LoginWithToken and, when set, also applied to the ID token
// obtained in the callback.
func WithTokenReviewer(r users.TokenReviewer) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.reviewer = r
	}
}

// WithSessionLifetime sets the longest a session may live.
func WithSessionLifetime(d time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.sessionLifetime = d
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewAuthorizationService(
	issuer IssuerClient,
	flows authflowrepo.Repo,
	codec *sessions.Codec,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if issuer == nil {
		return nil, errors.New("[NewAuthorizationService] issuer client is required")
	}
	if flows == nil {
		return nil, errors.New("[NewAuthorizationService] auth flow repo is required")
	}
	if codec == nil {
		return nil, errors.New("[NewAuthorizationService] session codec is required")
	}

	as := &AuthorizationService{
		issuer:          issuer,
		flows:           flows,
		codec:           codec,
		sessionLifetime: DefaultSessionLifetime,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	if as.sessionLifetime < time.Second {
		return nil, errors.New("[NewAuthorizationService] session lifetime must be at least one second")
	}
	return as, nil
}

// AuthorizationURL starts a login and returns the identity provider URL the
// browser should be redirected to. returnURL is where the browser lands
// after the callback; anything but a local path is replaced by "/".
func (as *AuthorizationService) AuthorizationURL(ctx context.Context, returnURL string) (string, error) {
	state, err := randomString(stateLength)
	if err != nil {
		return "", newAuthorizationError("Authorization failed", err)
	}
	nonce, err := randomString(nonceLength)
	if err != nil {
		return "", newAuthorizationError("Authorization failed", err)
	}
	req := AuthRequest{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: oauth2.GenerateVerifier(),
	}

	authURL, err := as.issuer.AuthCodeURL(ctx, req)
	if err != nil {
		return "", newAuthorizationError(reasonFor(err), err)
	}

	err = as.flows.Put(state, &authflowrepo.AuthFlowState{
		Nonce:        req.Nonce,
		CodeVerifier: req.CodeVerifier,
		ReturnURL:    SafeReturnURL(returnURL),
		CreatedAt:    as.nowTime(),
		Phase:        PhaseRedirected,
	})
	if err != nil {
		return "", newAuthorizationError("Authorization failed", err)
	}

	log.Debug().Str("phase", string(PhaseRedirected)).Msg("Login started")
	return authURL, nil
}

// HandleCallback completes a login started by AuthorizationURL. Malformed
// parameters are rejected before the identity provider is contacted, and
// each state is accepted at most once.
func (as *AuthorizationService) HandleCallback(ctx context.Context, params CallbackParameters) (*Login, error) {
	if err := params.Validate(); err != nil {
		as.rejected(err)
		return nil, err
	}

	flow, err := as.flows.Consume(params.State)
	if err != nil {
		authErr := newAuthorizationError("Login attempt expired or unknown, please try again", err)
		as.rejected(authErr)
		return nil, authErr
	}
	log.Debug().Str("phase", string(PhaseCallbackReceived)).Msg("Login callback received")

	identity, err := as.issuer.Exchange(ctx, params.Code, AuthRequest{
		State:        params.State,
		Nonce:        flow.Nonce,
		CodeVerifier: flow.CodeVerifier,
	})
	if err != nil {
		authErr := newAuthorizationError(reasonFor(err), err)
		as.rejected(authErr)
		return nil, authErr
	}

	if as.reviewer != nil {
		if _, err := as.reviewer.Review(ctx, identity.IDToken); err != nil {
			authErr := newAuthorizationError(reasonFor(err), err)
			as.rejected(authErr)
			return nil, authErr
		}
	}

	subject := identity.Email
	if subject == "" {
		subject = identity.Subject
	}
	login, err := as.establish(subject, identity, identity.IDToken, identity.ExpiresAt, flow.ReturnURL)
	if err != nil {
		as.rejected(err)
		return nil, err
	}
	return login, nil
}

// LoginWithToken creates a session for a bearer token the client already
// holds. The cluster API decides whether the token is valid.
func (as *AuthorizationService) LoginWithToken(ctx context.Context, bearer string) (*Login, error) {
	if as.reviewer == nil {
		return nil, newAuthorizationError("Token login is not available", ErrNoTokenReviewer)
	}
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, newAuthorizationError("Missing token", nil)
	}

	user, err := as.reviewer.Review(ctx, bearer)
	if err != nil {
		authErr := newAuthorizationError(reasonFor(err), err)
		as.rejected(authErr)
		return nil, authErr
	}

	identity := &Identity{Subject: user.Username, Groups: user.Groups}
	login, err := as.establish(user.Username, identity, bearer, unverifiedExpiry(bearer), "/")
	if err != nil {
		as.rejected(err)
		return nil, err
	}
	return login, nil
}

// Logout returns the cookies that end a session. No server side state exists.
func (as *AuthorizationService) Logout() *sessions.SplitCookie {
	return as.codec.Clear()
}

// establish issues the session. It never outlives notAfter when set.
func (as *AuthorizationService) establish(subject string, identity *Identity, bearer string, notAfter time.Time, returnURL string) (*Login, error) {
	now := as.nowTime()
	lifetime := as.sessionLifetime
	if !notAfter.IsZero() && notAfter.Before(now.Add(lifetime)) {
		lifetime = notAfter.Sub(now)
	}
	if lifetime < time.Second {
		return nil, newAuthorizationError("Token expired", autherrors.ErrExpired)
	}

	claims, err := token.NewSessionClaims(subject, now, lifetime)
	if err != nil {
		return nil, newAuthorizationError("Authorization failed", err)
	}
	claims.Email = identity.Email
	claims.Name = identity.Name
	claims.Groups = identity.Groups

	cookie, err := as.codec.Encode(claims, bearer)
	if err != nil {
		return nil, newAuthorizationError("Authorization failed", err)
	}

	log.Info().
		Str("phase", string(PhaseEstablished)).
		Str("sub", claims.Subject).
		Str("jti", claims.ID).
		Time("exp", claims.ExpiresAtTime()).
		Msg("Session established")

	return &Login{Claims: claims, Cookie: cookie, ReturnURL: returnURL}, nil
}

func (as *AuthorizationService) rejected(err error) {
	log.Warn().Err(err).Str("phase", string(PhaseRejected)).Msg("Login rejected")
}

// reasonFor turns an internal error into text that may be shown to the user.
func reasonFor(err error) string {
	var (
		authErr     *AuthorizationError
		retrieveErr *oauth2.RetrieveError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Reason
	case errors.Is(err, ErrIssuerUnavailable):
		return "Identity provider not available"
	case errors.As(err, &retrieveErr):
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return "Authorization code rejected (" + retrieveErr.ErrorCode + ")"
		}
		return "Authorization code rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "Identity provider did not respond in time"
	case errors.Is(err, context.Canceled):
		return "Login cancelled"
	case errors.Is(err, users.ErrUnauthenticated):
		return "Token not accepted by the cluster"
	case errors.Is(err, ErrMissingIDToken), errors.Is(err, ErrIDTokenInvalid),
		errors.Is(err, ErrNonceMismatch), errors.Is(err, ErrIssuedInFuture):
		return "Identity token could not be verified"
	default:
		return "Authorization failed"
	}
}

// unverifiedExpiry reads exp from a JWT without checking its signature. It is
// only used to shorten a session, never to accept a token.
func unverifiedExpiry(bearer string) time.Time {
	claims := &jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(bearer, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// SafeReturnURL accepts only local absolute paths, so a login can never
// redirect to another site.
func SafeReturnURL(returnURL string) string {
	if returnURL == "" || !strings.HasPrefix(returnURL, "/") ||
		strings.HasPrefix(returnURL, "//") || strings.HasPrefix(returnURL, "/\\") {
		return "/"
	}
	u, err := url.Parse(returnURL)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
