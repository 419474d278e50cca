package config

import (
	"errors"
	"regexp"
	"time"
)

const (
	sessionSecretVar         = "SESSION_SECRET"
	sessionKeyIDVar          = "SESSION_KEY_ID"
	sessionLifetimeVar       = "SESSION_LIFETIME"
	sessionClockToleranceVar = "SESSION_CLOCK_TOLERANCE"
	sessionSecureCookiesVar  = "SESSION_SECURE_COOKIES"

	rateLimitEnabledVar = "RATE_LIMIT_ENABLED"
	rateLimitRPMVar     = "RATE_LIMIT_REQUESTS_PER_MINUTE"
	rateLimitBurstVar   = "RATE_LIMIT_BURST"
)

// minSecretLength is the shortest session secret accepted.
const minSecretLength = 16

// KeyIDPattern is the accepted form of a session key id. It never contains
// a ".", which separates the key id in sealed values.
var KeyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Session configures the session token and the cookies carrying it.
type Session struct {
	Secret         string
	KeyID          string
	Lifetime       time.Duration
	ClockTolerance time.Duration
	SecureCookies  bool // force the Secure attribute even behind plain HTTP
}

func (s Session) Validate() error {
	if s.Secret == "" {
		return errors.New("session secret is required")
	}
	if len(s.Secret) < minSecretLength {
		return errors.New("session secret is too short")
	}
	if !KeyIDPattern.MatchString(s.KeyID) {
		return errors.New("session key id must match [A-Za-z0-9_-]{1,32}")
	}
	if s.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if s.ClockTolerance < 0 {
		return errors.New("session clock tolerance must not be negative")
	}
	return nil
}

// RateLimit throttles the login endpoints per client address.
type RateLimit struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

func (r RateLimit) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.RequestsPerMinute <= 0 || r.Burst <= 0 {
		return errors.New("rate limit requests per minute and burst must be positive")
	}
	return nil
}

func loadSession() (Session, error) {
	var err error
	s := Session{
		Secret: GetEnv(sessionSecretVar, ""),
		KeyID:  GetEnv(sessionKeyIDVar, "v1"),
	}
	if s.Lifetime, err = GetEnvDuration(sessionLifetimeVar, 24*time.Hour); err != nil {
		return Session{}, err
	}
	if s.ClockTolerance, err = GetEnvDuration(sessionClockToleranceVar, DefaultClockTolerance); err != nil {
		return Session{}, err
	}
	if s.SecureCookies, err = GetEnvBool(sessionSecureCookiesVar, false); err != nil {
		return Session{}, err
	}
	return s, nil
}

func loadRateLimit() (RateLimit, error) {
	var err error
	var r RateLimit
	if r.Enabled, err = GetEnvBool(rateLimitEnabledVar, true); err != nil {
		return RateLimit{}, err
	}
	if r.RequestsPerMinute, err = GetEnvInt(rateLimitRPMVar, 30); err != nil {
		return RateLimit{}, err
	}
	if r.Burst, err = GetEnvInt(rateLimitBurstVar, 10); err != nil {
		return RateLimit{}, err
	}
	return r, nil
}
