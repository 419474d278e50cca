package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"github.com/jrsteele09/go-dashboard-auth/users"
	"github.com/stretchr/testify/require"
	authenticationv1 "k8s.io/api/authentication/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

const validToken = "valid-cluster-token"

func newFakeClient(t *testing.T) *fake.Clientset {
	t.Helper()
	client := fake.NewSimpleClientset()
	client.PrependReactor("create", "tokenreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		review := action.(k8stesting.CreateAction).GetObject().(*authenticationv1.TokenReview)
		switch review.Spec.Token {
		case validToken:
			review.Status = authenticationv1.TokenReviewStatus{
				Authenticated: true,
				User: authenticationv1.UserInfo{
					Username: "system:serviceaccount:dashboard:admin",
					UID:      "3c1a2b",
					Groups:   []string{"system:serviceaccounts"},
				},
				Audiences: review.Spec.Audiences,
			}
		case "explode":
			return true, nil, errors.New("apiserver unavailable")
		default:
			review.Status = authenticationv1.TokenReviewStatus{Error: "token has expired"}
		}
		return true, review, nil
	})
	return client
}

func TestKubeTokenReviewer_Review(t *testing.T) {
	reviewer, err := users.NewKubeTokenReviewer(newFakeClient(t), users.WithAudiences("dashboard"))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("authenticated", func(t *testing.T) {
		user, err := reviewer.Review(ctx, validToken)
		require.NoError(t, err)
		require.Equal(t, "system:serviceaccount:dashboard:admin", user.Username)
		require.Equal(t, []string{"system:serviceaccounts"}, user.Groups)
	})

	t.Run("rejected", func(t *testing.T) {
		_, err := reviewer.Review(ctx, "stale-token")
		require.ErrorIs(t, err, users.ErrUnauthenticated)
		require.Contains(t, err.Error(), "token has expired")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := reviewer.Review(ctx, "")
		require.ErrorIs(t, err, users.ErrUnauthenticated)
	})

	t.Run("api error", func(t *testing.T) {
		_, err := reviewer.Review(ctx, "explode")
		require.Error(t, err)
		require.NotErrorIs(t, err, users.ErrUnauthenticated)
	})
}

func TestNewKubeTokenReviewer_RequiresClient(t *testing.T) {
	_, err := users.NewKubeTokenReviewer(nil)
	require.Error(t, err)
}

func TestNewClientset(t *testing.T) {
	client, err := users.NewClientset(config.Kube{APIServerURL: "https://127.0.0.1:6443"})
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = users.NewClientset(config.Kube{Kubeconfig: "/does/not/exist/kubeconfig"})
	require.Error(t, err)
}
