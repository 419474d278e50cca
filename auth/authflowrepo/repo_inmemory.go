package authflowrepo

import (
	"errors"
	"sync"
	"time"
)

// DefaultTTL bounds how long a user may take at the identity provider.
const DefaultTTL = 10 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]*AuthFlowState
	ttl     time.Duration
	nowTime func() time.Time
}

// InMemoryRepoOption defines a function type to modify the InMemoryRepo instance.
type InMemoryRepoOption func(*InMemoryRepo)

// WithTTL sets how long a state stays valid after it is stored.
func WithTTL(ttl time.Duration) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	r := &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		ttl:     DefaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Put stores an auth flow state. Expired entries are pruned on the way.
func (r *InMemoryRepo) Put(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[state]; exists {
		return errors.New("state already in use")
	}
	r.pruneLocked()

	// Create a copy to prevent external modifications
	stored := *authState
	r.states[state] = &stored
	return nil
}

// Consume removes and returns the state. A second call for the same state
// fails with ErrStateNotFound.
func (r *InMemoryRepo) Consume(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.states, state)

	if r.expired(authState) {
		return nil, ErrStateExpired
	}
	consumed := *authState
	return &consumed, nil
}

// Len returns the number of states held, expired ones included.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *InMemoryRepo) expired(s *AuthFlowState) bool {
	return r.nowTime().Sub(s.CreatedAt) > r.ttl
}

func (r *InMemoryRepo) pruneLocked() {
	for k, s := range r.states {
		if r.expired(s) {
			delete(r.states, k)
		}
	}
}
