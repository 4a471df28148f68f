package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySessionCache(time.Minute, 10)

	_, ok, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "sess-1", AuthAccountID: "acct-1"}))
	got, ok, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "acct-1", got.AuthAccountID)
}

func TestMemorySessionCache_AddKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemorySessionCache(30*time.Second, 10)
	c.now = func() time.Time { return now }

	added, err := c.Add(ctx, domain.Session{SessionID: "sess-1", AuthAccountID: "acct-1"})
	require.NoError(t, err)
	assert.True(t, added)

	revokedAt := now
	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "sess-1", RevokedAt: &revokedAt}))

	// A late fill with the live row does not replace the tombstone.
	added, err = c.Add(ctx, domain.Session{SessionID: "sess-1", AuthAccountID: "acct-1"})
	require.NoError(t, err)
	assert.False(t, added)
	got, ok, _ := c.Get(ctx, "sess-1")
	require.True(t, ok)
	assert.False(t, got.IsActive())

	// Once the tombstone has expired the slot is free again.
	now = now.Add(31 * time.Second)
	added, err = c.Add(ctx, domain.Session{SessionID: "sess-1", AuthAccountID: "acct-1"})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestMemorySessionCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemorySessionCache(30*time.Second, 10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "sess-1"}))
	now = now.Add(31 * time.Second)

	_, ok, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemorySessionCache_EvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemorySessionCache(time.Hour, 2)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "a"}))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "b"}))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, domain.Session{SessionID: "c"}))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}
