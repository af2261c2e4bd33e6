package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottlePerKey(t *testing.T) {
	th := NewThrottle(time.Hour, 1)
	require.True(t, th.Allow("a"))
	require.False(t, th.Allow("a"))
	require.True(t, th.Allow("b"))
}

func TestThrottlePrune(t *testing.T) {
	th := NewThrottle(time.Millisecond, 1)
	require.True(t, th.Allow("a"))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, th.Prune())
	require.True(t, th.Allow("a"))
}
