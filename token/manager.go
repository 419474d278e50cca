package token

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

// Manager signs and verifies session tokens and encrypts and decrypts the
// upstream bearer token. It holds no mutable state and is safe for
// concurrent use.
type Manager struct {
	keys           *Keyring
	clockTolerance time.Duration
	nowTime        func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithClockTolerance sets the skew allowed when checking exp and iat.
func WithClockTolerance(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.clockTolerance = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(keys *Keyring, options ...ManagerOption) (*Manager, error) {
	if keys == nil {
		return nil, fmt.Errorf("[token NewManager] keyring is required")
	}
	m := &Manager{
		keys:           keys,
		clockTolerance: config.DefaultClockTolerance,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.clockTolerance < 0 {
		return nil, fmt.Errorf("[token NewManager] clock tolerance must not be negative")
	}
	return m, nil
}

// NewManagerFromConfig derives the process key from the configured session
// secret and builds a Manager with the configured clock tolerance.
func NewManagerFromConfig(cfg config.Session, options ...ManagerOption) (*Manager, error) {
	key, err := DeriveKey(cfg.KeyID, []byte(cfg.Secret))
	if err != nil {
		return nil, autherrors.Wrapf(err, "[token NewManagerFromConfig]")
	}
	keys, err := NewKeyring(key)
	if err != nil {
		return nil, autherrors.Wrapf(err, "[token NewManagerFromConfig]")
	}
	return NewManager(keys, append([]ManagerOption{WithClockTolerance(cfg.ClockTolerance)}, options...)...)
}
