package utils

import (
	"context"
	"time"
)

const oauthStatePrefix = "oauth:state:"

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = GetRedis().Set(ctx, oauthStatePrefix+state, "1", ttl).Err()
}

// ConsumeState validates and removes a state token. Single use.
func ConsumeState(state string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := GetRedis().GetDel(ctx, oauthStatePrefix+state).Result()
	return err == nil && v != ""
}
