package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Empty(t, client.Addr())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestLocker_Disabled(t *testing.T) {
	locker := NewLocker(Disabled(), "test")
	ctx := context.Background()

	first, err := locker.Acquire(ctx, DepartmentLockName(1, "2025-2026"), time.Second)
	require.NoError(t, err)

	// Without Redis nothing is shared, so a second acquire also succeeds
	second, err := locker.Acquire(ctx, DepartmentLockName(1, "2025-2026"), time.Second)
	require.NoError(t, err)

	assert.NoError(t, first.Release(ctx))
	assert.NoError(t, second.Release(ctx))
}

func TestLock_ReleaseNil(t *testing.T) {
	var lk *Lock
	assert.NoError(t, lk.Release(context.Background()))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found, "expected cache miss when Redis disabled")

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"AllocationStatsKey", AllocationStatsKey(3, "2025-2026"), "allocation:stats:3:2025-2026"},
		{"RiskSummaryKey", RiskSummaryKey(42, "2025-2026"), "risk:summary:42:2025-2026"},
		{"DepartmentLockName", DepartmentLockName(3, "2025-2026"), "allocation:3:2025-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
