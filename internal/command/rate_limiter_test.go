package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u"))
	assert.True(t, rl.Allow("u"))
	assert.False(t, rl.Allow("u"))
	assert.True(t, rl.Allow("v"), "limits are per user")

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow("u"))
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("u"))

	rl := NewRateLimiter(0, time.Second)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("u"))
	}
}
