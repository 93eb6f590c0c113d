package signal

import (
	"testing"
	"time"

	"github.com/dkeye/voicesignal/internal/core"
	"github.com/stretchr/testify/require"
)

func TestRoomRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	rl := NewRoomRateLimiter(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	req.True(rl.Allow("a"))
	req.True(rl.Allow("a"))
	req.False(rl.Allow("a"))

	// Other connections have their own window
	req.True(rl.Allow("b"))

	// Once the window slides past the first attempts, joins are allowed again
	now = now.Add(time.Minute + time.Second)
	req.True(rl.Allow("a"))
}

func TestRoomRateLimiter_Forget(t *testing.T) {
	req := require.New(t)
	rl := NewRoomRateLimiter(1, time.Hour)

	req.True(rl.Allow("a"))
	req.False(rl.Allow("a"))

	rl.Forget("a")
	req.NotContains(rl.history, core.SessionID("a"))

	req.True(rl.Allow("a"))
}

func TestNewRoomRateLimiter_DisabledIsNil(t *testing.T) {
	require.Nil(t, NewRoomRateLimiter(0, time.Second))
	require.Nil(t, NewRoomRateLimiter(5, 0))
}
