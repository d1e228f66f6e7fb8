package lighter

import (
	"sync"
	"time"
)

const (
	defaultAuthTokenTTL    = 10 * time.Minute
	defaultAuthTokenBuffer = time.Minute
)

// authCache holds the process-wide auth token for one gateway instance,
// refreshed lazily with a safety buffer before expiry.
type authCache struct {
	signer       Signer
	accountIndex int64
	ttl          time.Duration
	buffer       time.Duration
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newAuthCache(signer Signer, accountIndex int64) *authCache {
	return &authCache{
		signer:       signer,
		accountIndex: accountIndex,
		ttl:          defaultAuthTokenTTL,
		buffer:       defaultAuthTokenBuffer,
		now:          time.Now,
	}
}

// Token returns a valid auth token, minting a fresh one when the cached token
// is missing or within the refresh buffer of expiry.
func (a *authCache) Token() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if a.token != "" && now.Add(a.buffer).Before(a.expiresAt) {
		return a.token, nil
	}
	deadline := now.Add(a.ttl)
	token, err := a.signer.AuthToken(a.accountIndex, deadline)
	if err != nil {
		return "", err
	}
	a.token = token
	a.expiresAt = deadline
	return token, nil
}

// Invalidate drops the cached token so the next Token call mints a new one.
func (a *authCache) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.mu.Unlock()
}
