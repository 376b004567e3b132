package cadastre

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a 变为最近使用
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewLRU(8, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", -1)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, -1, v)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Purge(t *testing.T) {
	c := NewLRU(8, 0)
	c.Set("a", 1)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLocator(t *testing.T) {
	ds := newTestDataset(BytesSource(fixtureGeoJSON))
	l := NewLocator(ds, 16, time.Minute)

	f, err := l.Locate(context.Background(), 2, 2)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "001", *f.Props.CCA)

	// 第二次命中缓存，结果一致
	again, err := l.Locate(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Same(t, f, again)

	miss, err := l.Locate(context.Background(), -1, -1)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, 2, l.cache.Len())
}

func TestLocator_LoadError(t *testing.T) {
	l := NewLocator(newTestDataset(BytesSource("{")), 16, time.Minute)
	_, err := l.Locate(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrDatasetLoad)
}
