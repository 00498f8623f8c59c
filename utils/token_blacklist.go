package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

// revokedTokens is the in-process fallback used when Redis is unavailable.
var (
	revokedTokens   = map[string]time.Time{}
	revokedTokensMu sync.RWMutex
)

// BlacklistToken revokes a JWT until its natural expiration. Redis carries
// the revocation so every instance sees it; without Redis the revocation is
// local to this process.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}

	revokedTokensMu.Lock()
	revokedTokens[token] = expiresAt
	revokedTokensMu.Unlock()
}

// IsTokenBlacklisted reports whether a token was revoked before expiring.
// A Redis error counts as not revoked so an outage cannot lock everyone out.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, blacklistPrefix+token).Result(); err == nil {
			return n > 0
		}
	}

	revokedTokensMu.RLock()
	expiresAt, ok := revokedTokens[token]
	revokedTokensMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedTokensMu.Lock()
		delete(revokedTokens, token)
		revokedTokensMu.Unlock()
		return false
	}
	return true
}
