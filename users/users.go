package users

import (
	"context"
	"errors"
	"fmt"

	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

var ErrUnauthenticated = errors.New("token not authenticated")

// User is the identity the cluster API associates with a bearer token.
type User struct {
	Username string   `json:"username"`
	UID      string   `json:"uid,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// TokenReviewer asks the cluster API who a bearer token belongs to.
type TokenReviewer interface {
	Review(ctx context.Context, bearer string) (*User, error)
}

// KubeTokenReviewer implements TokenReviewer with the
// authentication.k8s.io/v1 TokenReview API.
type KubeTokenReviewer struct {
	client    kubernetes.Interface
	audiences []string
}

// KubeTokenReviewerOption defines a function type to modify the KubeTokenReviewer instance.
type KubeTokenReviewerOption func(*KubeTokenReviewer)

// WithAudiences restricts reviews to tokens issued for one of audiences.
func WithAudiences(audiences ...string) KubeTokenReviewerOption {
	return func(r *KubeTokenReviewer) {
		r.audiences = audiences
	}
}

func NewKubeTokenReviewer(client kubernetes.Interface, options ...KubeTokenReviewerOption) (*KubeTokenReviewer, error) {
	if client == nil {
		return nil, errors.New("[NewKubeTokenReviewer] kubernetes client is required")
	}
	r := &KubeTokenReviewer{client: client}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *KubeTokenReviewer) Review(ctx context.Context, bearer string) (*User, error) {
	if bearer == "" {
		return nil, ErrUnauthenticated
	}
	review := &authenticationv1.TokenReview{
		Spec: authenticationv1.TokenReviewSpec{
			Token:     bearer,
			Audiences: r.audiences,
		},
	}
	result, err := r.client.AuthenticationV1().TokenReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating token review: %w", err)
	}
	if !result.Status.Authenticated {
		if result.Status.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, result.Status.Error)
		}
		return nil, ErrUnauthenticated
	}
	if result.Status.User.Username == "" {
		return nil, fmt.Errorf("%w: review returned no username", ErrUnauthenticated)
	}
	return &User{
		Username: result.Status.User.Username,
		UID:      result.Status.User.UID,
		Groups:   result.Status.User.Groups,
	}, nil
}
