package auth

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultStateTTL   = 120 * time.Second
	DefaultExpiredTTL = time.Hour
)

// Session is an authorized user's OAuth client and token.
type Session struct {
	UserID   string
	Username string
	Token    *oauth2.Token
	Client   OAuthClient
}

// ExpiryEpochMillis returns the access token expiry in Unix milliseconds, or 0.
func (s *Session) ExpiryEpochMillis() int64 {
	if s.Token == nil || s.Token.Expiry.IsZero() {
		return 0
	}
	return s.Token.Expiry.UnixMilli()
}

// PendingAuth is what a state token stands for until the callback arrives.
type PendingAuth struct {
	Client   OAuthClient
	UserID   string
	Username string
}

type stateEntry struct {
	pending   PendingAuth
	expiresAt time.Time
}

// StoreConfig configures a Store. Zero values select the defaults.
type StoreConfig struct {
	StateTTL      time.Duration
	ExpiredTTL    time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Store holds sessions, live state tokens and recently expired state tokens.
// Expiry is applied on every lookup as well as by a background sweeper.
type Store struct {
	cfg StoreConfig

	mu       sync.Mutex
	sessions map[string]*Session
	states   map[string]stateEntry
	expired  map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// NewStore creates an empty Store and starts its sweeper. Call Close to stop it.
func NewStore(cfg StoreConfig) *Store {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.ExpiredTTL <= 0 {
		cfg.ExpiredTTL = DefaultExpiredTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.StateTTL / 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		states:   make(map[string]stateEntry),
		expired:  make(map[string]time.Time),
		stop:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the sweeper.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.expireLocked(s.cfg.Now())
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// expireLocked moves lapsed state tokens to the expired set and drops lapsed
// expired entries.
func (s *Store) expireLocked(now time.Time) {
	for token, e := range s.states {
		if !now.Before(e.expiresAt) {
			delete(s.states, token)
			s.expired[token] = e.expiresAt.Add(s.cfg.ExpiredTTL)
		}
	}
	for token, until := range s.expired {
		if !now.Before(until) {
			delete(s.expired, token)
		}
	}
}

// PutState registers a live state token.
func (s *Store) PutState(token string, p PendingAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[token] = stateEntry{pending: p, expiresAt: s.cfg.Now().Add(s.cfg.StateTTL)}
}

// HasState reports whether token is live.
func (s *Store) HasState(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.cfg.Now())
	_, ok := s.states[token]
	return ok
}

// TakeState removes a live token and returns what it stood for.
func (s *Store) TakeState(token string) (PendingAuth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.cfg.Now())
	e, ok := s.states[token]
	if !ok {
		return PendingAuth{}, false
	}
	delete(s.states, token)
	return e.pending, true
}

// IsStateExpired reports whether token lapsed without being consumed.
func (s *Store) IsStateExpired(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.cfg.Now())
	_, ok := s.expired[token]
	return ok
}

// PutSession installs or replaces the session of sess.UserID.
func (s *Store) PutSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

// Session returns the session of userID.
func (s *Store) Session(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// HasSession reports whether userID has a session.
func (s *Store) HasSession(userID string) bool {
	_, ok := s.Session(userID)
	return ok
}

func (s *Store) now() time.Time {
	return s.cfg.Now()
}
