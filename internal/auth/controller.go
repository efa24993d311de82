package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// stateTokenBytes is the amount of randomness in a state token (hex encoded).
const stateTokenBytes = 64

// Outcome classifies an authorization callback.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeExpired Outcome = "EXPIRED"
	OutcomeInvalid Outcome = "INVALID"
)

// AuthRequest is an issued authorization URL and its state token.
type AuthRequest struct {
	AuthURL    string `json:"authUrl"`
	StateToken string `json:"stateToken"`
}

// Verification is the answer to an auth-polling caller.
type Verification struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	IsExpired       bool `json:"isExpired"`
}

// Controller runs the OAuth authorization flow against a Store.
type Controller struct {
	store     *Store
	newClient ClientFactory
	random    io.Reader
	log       *zap.Logger
}

// NewController creates a Controller. A nil factory means GoogleClients.
func NewController(store *Store, newClient ClientFactory) *Controller {
	if newClient == nil {
		newClient = GoogleClients
	}
	return &Controller{
		store:     store,
		newClient: newClient,
		random:    rand.Reader,
		log:       logging.ForComponent(logging.CompAuth),
	}
}

func (c *Controller) newStateToken() (string, error) {
	buf := make([]byte, stateTokenBytes)
	for {
		if _, err := io.ReadFull(c.random, buf); err != nil {
			return "", fmt.Errorf("failed to generate state token: %w", err)
		}
		token := hex.EncodeToString(buf)
		if !c.store.HasState(token) {
			return token, nil
		}
	}
}

// CreateAuthRequest issues an authorization URL bound to a fresh state token.
func (c *Controller) CreateAuthRequest(opts ClientOptions) (AuthRequest, error) {
	token, err := c.newStateToken()
	if err != nil {
		return AuthRequest{}, err
	}

	client := c.newClient(opts)
	url := client.AuthCodeURL(token, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	c.store.PutState(token, PendingAuth{Client: client, UserID: opts.UserID, Username: opts.Username})
	c.log.Debug("issued auth request", zap.String("user_id", opts.UserID))

	return AuthRequest{AuthURL: url, StateToken: token}, nil
}

// CompleteAuthRequest handles the provider callback. The state token is
// consumed before the exchange, so a failed exchange cannot be retried with it.
func (c *Controller) CompleteAuthRequest(ctx context.Context, code, state string) (Outcome, error) {
	pending, ok := c.store.TakeState(state)
	if !ok {
		if c.store.IsStateExpired(state) {
			c.log.Debug("state token expired")
			return OutcomeExpired, nil
		}
		c.log.Debug("state token invalid")
		return OutcomeInvalid, nil
	}

	token, err := pending.Client.Exchange(ctx, code)
	if err != nil {
		c.log.Error("authorization code exchange failed", zap.String("user_id", pending.UserID), zap.Error(err))
		return OutcomeInvalid, model.NewError(model.KindAuth,
			"Failed to exchange authorization code",
			"Authorization was not completed, start a new search to retry", 0, err)
	}

	c.store.PutSession(&Session{
		UserID:   pending.UserID,
		Username: pending.Username,
		Token:    token,
		Client:   pending.Client,
	})
	c.log.Info("user authorized", zap.String("username", pending.Username))
	return OutcomeSuccess, nil
}

// HasSession reports whether userID has authorized at some point.
func (c *Controller) HasSession(userID string) bool {
	return c.store.HasSession(userID)
}

// GetSession returns the session of userID.
func (c *Controller) GetSession(userID string) (*Session, bool) {
	return c.store.Session(userID)
}

// IsSessionValid reports whether userID has an unexpired access token.
func (c *Controller) IsSessionValid(userID string) bool {
	sess, ok := c.store.Session(userID)
	if !ok || sess.Token == nil || sess.Token.AccessToken == "" {
		return false
	}
	return c.store.now().UnixMilli() < sess.ExpiryEpochMillis()
}

// VerifyAuthentication reports the two flags independently.
func (c *Controller) VerifyAuthentication(state, userID string) Verification {
	return Verification{
		IsAuthenticated: c.IsSessionValid(userID),
		IsExpired:       c.store.IsStateExpired(state),
	}
}

// TokenSource returns a token source for userID's session. Refreshed tokens
// are written back to the session.
func (c *Controller) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	sess, ok := c.store.Session(userID)
	if !ok || sess.Token == nil {
		return nil, model.NewError(model.KindAuth, "No authorized session", "User "+userID+" has not authorized Google Drive", 401, nil)
	}
	return &sessionTokenSource{
		store: c.store,
		sess:  sess,
		base:  oauth2.ReuseTokenSource(sess.Token, sess.Client.TokenSource(ctx, sess.Token)),
	}, nil
}

type sessionTokenSource struct {
	store *Store

	mu   sync.Mutex
	sess *Session
	base oauth2.TokenSource
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.sess.Token.AccessToken {
		refreshed := *s.sess
		refreshed.Token = tok
		s.store.PutSession(&refreshed)
		s.sess = &refreshed
	}
	return tok, nil
}
