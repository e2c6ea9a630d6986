package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allow("user-1")
		assert.True(t, allowed, "request %d should be allowed within burst", i+1)
	}

	allowed, remaining := rl.allow("user-1")
	assert.False(t, allowed)
	assert.Less(t, remaining, 1.0)
}

func TestRateLimiterTracksUsersIndependently(t *testing.T) {
	rl := NewRateLimiter(1)

	allowed, _ := rl.allow("user-1")
	assert.True(t, allowed)

	allowed, _ = rl.allow("user-2")
	assert.True(t, allowed, "a different user's bucket must be independent")
}
