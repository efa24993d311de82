package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

type fakeClient struct {
	opts  ClientOptions
	token *oauth2.Token
	err   error
	codes []string
	mu    sync.Mutex
	inner *oauth2.Config
}

func (f *fakeClient) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return f.inner.AuthCodeURL(state, opts...)
}

func (f *fakeClient) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.mu.Lock()
	f.codes = append(f.codes, code)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func (f *fakeClient) TokenSource(_ context.Context, t *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(t)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errExchange = errors.New("invalid_grant")

func stateFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}
