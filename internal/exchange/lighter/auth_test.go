package lighter

import (
	"testing"
	"time"
)

func TestAuthCacheReusesToken(t *testing.T) {
	signer, _ := testSigner(t, 1)
	cache := newAuthCache(signer, 7)
	now := time.Unix(1000000, 0)
	cache.now = func() time.Time { return now }

	first, err := cache.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	now = now.Add(time.Minute)
	second, err := cache.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if first != second {
		t.Fatalf("token not reused inside ttl")
	}
}

func TestAuthCacheRefreshesNearExpiry(t *testing.T) {
	signer, _ := testSigner(t, 1)
	cache := newAuthCache(signer, 7)
	now := time.Unix(1000000, 0)
	cache.now = func() time.Time { return now }

	first, _ := cache.Token()
	// Inside the refresh buffer of the 10 minute ttl.
	now = now.Add(9*time.Minute + 30*time.Second)
	second, _ := cache.Token()
	if first == second {
		t.Fatalf("token not refreshed near expiry")
	}
}

func TestAuthCacheInvalidate(t *testing.T) {
	signer, _ := testSigner(t, 1)
	cache := newAuthCache(signer, 7)
	now := time.Unix(1000000, 0)
	cache.now = func() time.Time { return now }

	first, _ := cache.Token()
	now = now.Add(time.Second)
	cache.Invalidate()
	second, _ := cache.Token()
	if first == second {
		t.Fatalf("invalidate did not force a new token")
	}
}
