package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jun/drivelookup/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type harness struct {
	clock  *clock
	store  *Store
	ctrl   *Controller
	client *fakeClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: newClock()}
	h.store = NewStore(StoreConfig{Now: h.clock.Now, SweepInterval: time.Hour})
	t.Cleanup(h.store.Close)
	h.ctrl = NewController(h.store, func(opts ClientOptions) OAuthClient {
		h.client = &fakeClient{
			opts:  opts,
			inner: NewOAuthConfig(opts),
			token: &oauth2.Token{
				AccessToken:  "access",
				RefreshToken: "refresh",
				Expiry:       h.clock.Now().Add(time.Hour),
			},
		}
		return h.client
	})
	return h
}

var userOpts = ClientOptions{UserID: "u1", Username: "alice", ClientID: "c", ClientSecret: "s", RedirectHost: "https://h"}

func TestCreateAuthRequest(t *testing.T) {
	h := newHarness(t)

	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)

	assert.Len(t, req.StateToken, 2*stateTokenBytes)
	assert.Equal(t, req.StateToken, stateFromURL(req.AuthURL))
	assert.Contains(t, req.AuthURL, "client_id=c")
	assert.Contains(t, req.AuthURL, "access_type=offline")
	assert.Contains(t, req.AuthURL, "prompt=consent")
	assert.Contains(t, req.AuthURL, "drive.readonly")
	assert.Contains(t, req.AuthURL, "redirect_uri=https%3A%2F%2Fh%2F_int%2Fgoogle-drive%2Fauth")
	assert.True(t, h.store.HasState(req.StateToken))

	other, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)
	assert.NotEqual(t, req.StateToken, other.StateToken)
}

func TestCompleteAuthRequest_UnknownToken(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)

	outcome, err := h.ctrl.CompleteAuthRequest(context.Background(), "fake-code", "unknown-token")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
}

func TestCompleteAuthRequest_SingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)

	outcome, err := h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, []string{"code"}, h.client.codes)

	outcome, err = h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Len(t, h.client.codes, 1)

	sess, ok := h.ctrl.GetSession("u1")
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, h.clock.Now().Add(time.Hour).UnixMilli(), sess.ExpiryEpochMillis())
	assert.True(t, h.ctrl.HasSession("u1"))
	assert.True(t, h.ctrl.IsSessionValid("u1"))
}

func TestCompleteAuthRequest_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)

	h.clock.Advance(DefaultStateTTL + time.Second)

	outcome, err := h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, outcome)

	// A replay is still reported as expired, not forged.
	outcome, err = h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, outcome)
	assert.Empty(t, h.client.codes)
	assert.False(t, h.ctrl.HasSession("u1"))

	h.clock.Advance(DefaultExpiredTTL)
	outcome, err = h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
}

func TestCompleteAuthRequest_ExchangeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)
	h.client.err = errExchange

	_, err = h.ctrl.CompleteAuthRequest(ctx, "bad-code", req.StateToken)
	require.Error(t, err)
	var mErr *model.Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, model.KindAuth, mErr.Kind)
	assert.ErrorIs(t, err, errExchange)
	assert.False(t, h.ctrl.HasSession("u1"))

	// The token was consumed by the failed attempt.
	outcome, err := h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
}

func TestIsSessionValid(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.IsSessionValid("u1"))

	h.store.PutSession(&Session{UserID: "u1", Token: &oauth2.Token{}})
	assert.False(t, h.ctrl.IsSessionValid("u1"), "no access token")

	h.store.PutSession(&Session{UserID: "u1", Token: &oauth2.Token{AccessToken: "a", Expiry: h.clock.Now().Add(time.Minute)}})
	assert.True(t, h.ctrl.IsSessionValid("u1"))

	h.clock.Advance(time.Minute)
	assert.False(t, h.ctrl.IsSessionValid("u1"), "expiry reached")
	assert.True(t, h.ctrl.HasSession("u1"))
}

func TestVerifyAuthentication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)

	assert.Equal(t, Verification{}, h.ctrl.VerifyAuthentication(req.StateToken, "u1"))

	_, err = h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)
	assert.Equal(t, Verification{IsAuthenticated: true}, h.ctrl.VerifyAuthentication(req.StateToken, "u1"))

	late, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)
	h.clock.Advance(DefaultStateTTL)
	v := h.ctrl.VerifyAuthentication(late.StateToken, "u1")
	assert.True(t, v.IsExpired)
	assert.True(t, v.IsAuthenticated)
}

func TestTokenSource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.TokenSource(ctx, "u1")
	require.Error(t, err)

	req, err := h.ctrl.CreateAuthRequest(userOpts)
	require.NoError(t, err)
	_, err = h.ctrl.CompleteAuthRequest(ctx, "code", req.StateToken)
	require.NoError(t, err)

	ts, err := h.ctrl.TokenSource(ctx, "u1")
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
}

func TestStore_Isolation(t *testing.T) {
	a := NewStore(StoreConfig{})
	b := NewStore(StoreConfig{})
	defer a.Close()
	defer b.Close()

	a.PutState("tok", PendingAuth{UserID: "u1"})
	a.PutSession(&Session{UserID: "u1"})

	assert.True(t, a.HasState("tok"))
	assert.False(t, b.HasState("tok"))
	assert.False(t, b.HasSession("u1"))
}

func TestStore_Sweeper(t *testing.T) {
	c := newClock()
	s := NewStore(StoreConfig{Now: c.Now, SweepInterval: 5 * time.Millisecond})
	defer s.Close()

	s.PutState("tok", PendingAuth{UserID: "u1"})
	c.Advance(DefaultStateTTL)

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, expired := s.expired["tok"]
		return expired
	}, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsStateExpired("tok"))
	assert.False(t, s.HasState("tok"))
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := NewOAuthConfig(ClientOptions{ClientID: "c", RedirectHost: "https://h/"})
	assert.Equal(t, "https://h/_int/google-drive/auth", cfg.RedirectURL)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/drive.readonly"}, cfg.Scopes)
	assert.True(t, strings.HasPrefix(cfg.Endpoint.AuthURL, "https://accounts.google.com/"))
}

func TestServiceAccountTokenSource_InvalidKey(t *testing.T) {
	_, err := ServiceAccountTokenSource(context.Background(), []byte("not json"))
	assert.Error(t, err)
}
