package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	mockKeyID        = "mock-key-1"
	mockClientSecret = "mock-client-secret"
	mockNonce        = "mock-nonce"
)

// mockOIDCServer is a minimal identity provider: discovery, JWKS and a
// token endpoint that issues RS256 ID tokens.
type mockOIDCServer struct {
	*httptest.Server
	privateKey *rsa.PrivateKey

	mu            sync.Mutex
	discoveries   int
	tokenRequests int
	failures      []int // status codes returned before a successful token response
	idTokenClaims func(issuer string) jwtlib.MapClaims
	lastTokenForm url.Values
}

func newMockOIDCServer(t *testing.T) *mockOIDCServer {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := &mockOIDCServer{privateKey: privateKey}
	m.idTokenClaims = func(issuer string) jwtlib.MapClaims {
		now := time.Now()
		return jwtlib.MapClaims{
			"iss":    issuer,
			"aud":    testClientID,
			"sub":    "0001",
			"email":  testUserEmail,
			"name":   "Foo",
			"groups": []string{"operators"},
			"nonce":  mockNonce,
			"iat":    now.Unix(),
			"exp":    now.Add(time.Hour).Unix(),
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", m.handleDiscovery)
	mux.HandleFunc("/jwks", m.handleJWKS)
	mux.HandleFunc("/token", m.handleToken)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

func (m *mockOIDCServer) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.discoveries++
	m.mu.Unlock()

	doc := map[string]any{
		"issuer":                                m.URL,
		"authorization_endpoint":                m.URL + "/authorize",
		"token_endpoint":                        m.URL + "/token",
		"jwks_uri":                              m.URL + "/jwks",
		"code_challenge_methods_supported":      []string{"S256"},
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (m *mockOIDCServer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": mockKeyID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(m.privateKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(m.privateKey.E)).Bytes()),
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}

func (m *mockOIDCServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.tokenRequests++
	m.lastTokenForm = r.PostForm
	var status int
	if len(m.failures) > 0 {
		status, m.failures = m.failures[0], m.failures[1:]
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
		return
	}
	if r.PostForm.Get("code") != validCode {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "authorization code is invalid or expired",
		})
		return
	}

	idToken := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, m.idTokenClaims(m.URL))
	idToken.Header["kid"] = mockKeyID
	raw, err := idToken.SignedString(m.privateKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "mock-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     raw,
	})
}

func (m *mockOIDCServer) counts() (discoveries, tokenRequests int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discoveries, m.tokenRequests
}

func mockIssuerConfig(issuer string) config.OIDC {
	return config.OIDC{
		Issuer:             issuer,
		ClientID:           testClientID,
		ClientSecret:       mockClientSecret,
		RedirectURL:        testRedirect,
		Scopes:             []string{"openid", "email", "profile", "groups"},
		ClockTolerance:     30 * time.Second,
		ExchangeTimeout:    5 * time.Second,
		ExchangeRetries:    2,
		ExchangeRetryDelay: time.Millisecond,
		StateTTL:           10 * time.Minute,
	}
}

func newTestIssuer(t *testing.T, m *mockOIDCServer) *auth.OIDCIssuer {
	t.Helper()
	issuer, err := auth.NewOIDCIssuer(mockIssuerConfig(m.URL))
	require.NoError(t, err)
	return issuer
}

func mockAuthRequest() auth.AuthRequest {
	return auth.AuthRequest{State: "state", Nonce: mockNonce, CodeVerifier: oauth2.GenerateVerifier()}
}

func TestNewOIDCIssuer_InvalidConfig(t *testing.T) {
	_, err := auth.NewOIDCIssuer(config.OIDC{})
	require.Error(t, err)

	cfg := mockIssuerConfig("https://idp.example.org")
	cfg.CAFile = "/does/not/exist.pem"
	_, err = auth.NewOIDCIssuer(cfg)
	require.Error(t, err)
}

func TestOIDCIssuer_AuthCodeURL(t *testing.T) {
	m := newMockOIDCServer(t)
	issuer := newTestIssuer(t, m)
	req := mockAuthRequest()

	raw, err := issuer.AuthCodeURL(context.Background(), req)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, m.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirect, q.Get("redirect_uri"))
	require.Equal(t, "openid email profile groups", q.Get("scope"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, req.State, q.Get("state"))
	require.Equal(t, req.Nonce, q.Get("nonce"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(req.CodeVerifier), q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))

	_, err = issuer.AuthCodeURL(context.Background(), req)
	require.NoError(t, err)
	discoveries, _ := m.counts()
	require.Equal(t, 1, discoveries, "discovery is cached")
}

func TestOIDCIssuer_Exchange(t *testing.T) {
	m := newMockOIDCServer(t)
	issuer := newTestIssuer(t, m)
	req := mockAuthRequest()

	identity, err := issuer.Exchange(context.Background(), validCode, req)
	require.NoError(t, err)
	require.Equal(t, "0001", identity.Subject)
	require.Equal(t, testUserEmail, identity.Email)
	require.Equal(t, "Foo", identity.Name)
	require.Equal(t, []string{"operators"}, identity.Groups)
	require.NotEmpty(t, identity.IDToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, 5*time.Second)

	require.Equal(t, req.CodeVerifier, m.lastTokenForm.Get("code_verifier"))
}

func TestOIDCIssuer_ExchangeRejectsBadIDTokens(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c jwtlib.MapClaims)
		wantErr error
	}{
		{"nonce mismatch", func(c jwtlib.MapClaims) { c["nonce"] = "replayed" }, auth.ErrNonceMismatch},
		{"wrong audience", func(c jwtlib.MapClaims) { c["aud"] = "another-client" }, auth.ErrIDTokenInvalid},
		{"wrong issuer", func(c jwtlib.MapClaims) { c["iss"] = "https://evil.example.org" }, auth.ErrIDTokenInvalid},
		{"expired beyond tolerance", func(c jwtlib.MapClaims) { c["exp"] = time.Now().Add(-2 * time.Minute).Unix() }, auth.ErrIDTokenInvalid},
		{"issued in the future", func(c jwtlib.MapClaims) { c["iat"] = time.Now().Add(5 * time.Minute).Unix() }, auth.ErrIssuedInFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockOIDCServer(t)
			base := m.idTokenClaims
			m.idTokenClaims = func(issuer string) jwtlib.MapClaims {
				c := base(issuer)
				tt.mutate(c)
				return c
			}
			issuer := newTestIssuer(t, m)

			_, err := issuer.Exchange(context.Background(), validCode, mockAuthRequest())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOIDCIssuer_ExchangeAcceptsExpiryWithinTolerance(t *testing.T) {
	m := newMockOIDCServer(t)
	base := m.idTokenClaims
	m.idTokenClaims = func(issuer string) jwtlib.MapClaims {
		c := base(issuer)
		c["iat"] = time.Now().Add(-time.Hour).Unix()
		c["exp"] = time.Now().Add(-10 * time.Second).Unix()
		return c
	}
	issuer := newTestIssuer(t, m)

	_, err := issuer.Exchange(context.Background(), validCode, mockAuthRequest())
	require.NoError(t, err)
}

func TestOIDCIssuer_ExchangeRetriesServerErrors(t *testing.T) {
	m := newMockOIDCServer(t)
	m.failures = []int{http.StatusServiceUnavailable, http.StatusBadGateway}
	issuer := newTestIssuer(t, m)

	_, err := issuer.Exchange(context.Background(), validCode, mockAuthRequest())
	require.NoError(t, err)
	_, tokenRequests := m.counts()
	require.Equal(t, 3, tokenRequests)
}

func TestOIDCIssuer_ExchangeGivesUpAfterRetries(t *testing.T) {
	m := newMockOIDCServer(t)
	m.failures = []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable}
	issuer := newTestIssuer(t, m)

	_, err := issuer.Exchange(context.Background(), validCode, mockAuthRequest())
	require.Error(t, err)
	_, tokenRequests := m.counts()
	require.Equal(t, 3, tokenRequests)
}

func TestOIDCIssuer_ExchangeDoesNotRetryRejectedCode(t *testing.T) {
	m := newMockOIDCServer(t)
	issuer := newTestIssuer(t, m)

	_, err := issuer.Exchange(context.Background(), invalidCode, mockAuthRequest())
	var retrieveErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &retrieveErr))
	require.Equal(t, "invalid_grant", retrieveErr.ErrorCode)
	_, tokenRequests := m.counts()
	require.Equal(t, 1, tokenRequests)
}

func TestOIDCIssuer_DiscoveryFailure(t *testing.T) {
	m := newMockOIDCServer(t)
	issuerURL := m.URL
	m.Close()

	issuer, err := auth.NewOIDCIssuer(mockIssuerConfig(issuerURL))
	require.NoError(t, err)

	_, err = issuer.AuthCodeURL(context.Background(), mockAuthRequest())
	require.ErrorIs(t, err, auth.ErrIssuerUnavailable)

	_, err = issuer.Exchange(context.Background(), validCode, mockAuthRequest())
	require.ErrorIs(t, err, auth.ErrIssuerUnavailable)
}

func TestOIDCIssuer_ExchangeHonoursCancellation(t *testing.T) {
	m := newMockOIDCServer(t)
	issuer := newTestIssuer(t, m)

	// discover first so only the exchange sees the cancelled context
	_, err := issuer.AuthCodeURL(context.Background(), mockAuthRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = issuer.Exchange(ctx, validCode, mockAuthRequest())
	require.ErrorIs(t, err, context.Canceled)
}
