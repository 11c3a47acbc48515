package opensubtitles

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenCache holds the login token of one Client for a fixed validity window.
type tokenCache struct {
	mu       sync.Mutex
	token    *oauth2.Token
	validity time.Duration
	now      func() time.Time
}

func newTokenCache(validity time.Duration) *tokenCache {
	return &tokenCache{validity: validity, now: time.Now}
}

// get returns the cached token or nil once it has expired.
func (t *tokenCache) get() *oauth2.Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token == nil || t.token.AccessToken == "" || !t.now().Before(t.token.Expiry) {
		return nil
	}
	return t.token
}

func (t *tokenCache) set(accessToken string) *oauth2.Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.token = &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      t.now().Add(t.validity),
	}
	return t.token
}

func (t *tokenCache) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = nil
}
