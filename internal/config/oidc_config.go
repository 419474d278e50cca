package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultClockTolerance is the skew allowed when comparing token timestamps.
const DefaultClockTolerance = 30 * time.Second

const (
	oidcIssuerVar             = "OIDC_ISSUER"
	oidcClientIDVar           = "OIDC_CLIENT_ID"
	oidcClientSecretVar       = "OIDC_CLIENT_SECRET"
	oidcRedirectURLVar        = "OIDC_REDIRECT_URL"
	oidcScopeVar              = "OIDC_SCOPE"
	oidcClockToleranceVar     = "OIDC_CLOCK_TOLERANCE"
	oidcExchangeTimeoutVar    = "OIDC_EXCHANGE_TIMEOUT"
	oidcExchangeRetriesVar    = "OIDC_EXCHANGE_RETRIES"
	oidcExchangeRetryDelayVar = "OIDC_EXCHANGE_RETRY_DELAY"
	oidcCAFileVar             = "OIDC_CA_FILE"
	oidcInsecureVar           = "OIDC_INSECURE_SKIP_VERIFY"
	oidcStateTTLVar           = "OIDC_STATE_TTL"
)

// OIDC configures the identity provider and the authorization code exchange.
type OIDC struct {
	Issuer             string
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	Scopes             []string
	ClockTolerance     time.Duration
	ExchangeTimeout    time.Duration
	ExchangeRetries    int
	ExchangeRetryDelay time.Duration
	CAFile             string
	InsecureSkipVerify bool
	StateTTL           time.Duration // lifetime of a pending login attempt
}

// Scope returns the scopes joined the way they appear in the authorization URL.
func (o OIDC) Scope() string {
	return strings.Join(o.Scopes, " ")
}

func (o OIDC) Validate() error {
	if o.Issuer == "" {
		return errors.New("oidc issuer is required")
	}
	if _, err := url.ParseRequestURI(o.Issuer); err != nil {
		return fmt.Errorf("oidc issuer: %w", err)
	}
	if o.ClientID == "" {
		return errors.New("oidc client id is required")
	}
	if o.RedirectURL == "" {
		return errors.New("oidc redirect url is required")
	}
	if o.ClockTolerance < 0 {
		return errors.New("oidc clock tolerance must not be negative")
	}
	if o.ExchangeTimeout <= 0 {
		return errors.New("oidc exchange timeout must be positive")
	}
	if o.ExchangeRetries < 0 {
		return errors.New("oidc exchange retries must not be negative")
	}
	return nil
}

func loadOIDC() (OIDC, error) {
	var err error
	o := OIDC{
		Issuer:       GetEnv(oidcIssuerVar, ""),
		ClientID:     GetEnv(oidcClientIDVar, ""),
		ClientSecret: GetEnv(oidcClientSecretVar, ""),
		RedirectURL:  GetEnv(oidcRedirectURLVar, "http://localhost:8080/auth/callback"),
		Scopes:       strings.Fields(GetEnv(oidcScopeVar, "openid email profile groups")),
		CAFile:       GetEnv(oidcCAFileVar, ""),
	}
	if o.ClockTolerance, err = GetEnvDuration(oidcClockToleranceVar, DefaultClockTolerance); err != nil {
		return OIDC{}, err
	}
	if o.ExchangeTimeout, err = GetEnvDuration(oidcExchangeTimeoutVar, 10*time.Second); err != nil {
		return OIDC{}, err
	}
	if o.ExchangeRetries, err = GetEnvInt(oidcExchangeRetriesVar, 2); err != nil {
		return OIDC{}, err
	}
	if o.ExchangeRetryDelay, err = GetEnvDuration(oidcExchangeRetryDelayVar, 200*time.Millisecond); err != nil {
		return OIDC{}, err
	}
	if o.InsecureSkipVerify, err = GetEnvBool(oidcInsecureVar, false); err != nil {
		return OIDC{}, err
	}
	if o.StateTTL, err = GetEnvDuration(oidcStateTTLVar, 10*time.Minute); err != nil {
		return OIDC{}, err
	}
	return o, nil
}
