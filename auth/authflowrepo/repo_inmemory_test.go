package authflowrepo_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/auth/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_PutConsume(t *testing.T) {
	now := time.Now()
	repo := authflowrepo.NewInMemoryRepo(authflowrepo.WithNowTime(func() time.Time { return now }))

	in := &authflowrepo.AuthFlowState{
		Nonce:        "nonce",
		CodeVerifier: "verifier",
		ReturnURL:    "/clusters",
		CreatedAt:    now,
		Phase:        authflowrepo.PhaseRedirected,
	}
	require.NoError(t, repo.Put("state-1", in))
	in.ReturnURL = "/changed"

	out, err := repo.Consume("state-1")
	require.NoError(t, err)
	require.Equal(t, "/clusters", out.ReturnURL)
	require.Equal(t, "nonce", out.Nonce)
	require.Equal(t, authflowrepo.PhaseRedirected, out.Phase)

	_, err = repo.Consume("state-1")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestInMemoryRepo_Validation(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo()

	require.Error(t, repo.Put("", &authflowrepo.AuthFlowState{}))
	require.Error(t, repo.Put("s", nil))

	require.NoError(t, repo.Put("s", &authflowrepo.AuthFlowState{CreatedAt: time.Now()}))
	require.Error(t, repo.Put("s", &authflowrepo.AuthFlowState{CreatedAt: time.Now()}))

	_, err := repo.Consume("")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestInMemoryRepo_Expiry(t *testing.T) {
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	now := start
	repo := authflowrepo.NewInMemoryRepo(
		authflowrepo.WithTTL(time.Minute),
		authflowrepo.WithNowTime(func() time.Time { return now }),
	)

	require.NoError(t, repo.Put("old", &authflowrepo.AuthFlowState{CreatedAt: start}))
	require.NoError(t, repo.Put("stale", &authflowrepo.AuthFlowState{CreatedAt: start}))

	now = start.Add(2 * time.Minute)
	_, err := repo.Consume("old")
	require.ErrorIs(t, err, authflowrepo.ErrStateExpired)

	require.NoError(t, repo.Put("new", &authflowrepo.AuthFlowState{CreatedAt: now}))
	require.Equal(t, 1, repo.Len(), "expired states are pruned on put")

	_, err = repo.Consume("new")
	require.NoError(t, err)
}

func TestInMemoryRepo_ConsumeOnce(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo()
	require.NoError(t, repo.Put("state", &authflowrepo.AuthFlowState{CreatedAt: time.Now()}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume("state"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
}
