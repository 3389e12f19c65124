package upstream

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCachedFetcher(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"safety_score": 71}`)

	t.Run("hit skips the upstream", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.CrimeCategory)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.CrimeCategory, "E1", mock.Anything).Return(payload, true)

		got, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		inner.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("miss fetches and writes back", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.CrimeCategory)
		inner.On("Fetch", ctx, "E1").Return(payload, nil).Once()
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.CrimeCategory, "E1", mock.Anything).Return(nil, false)
		cache.On("Write", ctx, schema.CrimeCategory, "E1", payload).Return(nil).Once()

		got, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		cache.AssertExpectations(t)
		inner.AssertExpectations(t)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.CrimeCategory)
		inner.On("Fetch", ctx, "E9").Return(nil, contract.ErrNotFound)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.CrimeCategory, "E9", mock.Anything).Return(nil, false)

		_, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E9")
		assert.ErrorIs(t, err, contract.ErrNotFound)
		cache.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is transient and not cached", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.SchoolsCategory)
		inner.On("Fetch", ctx, "E3").Return([]byte("<html>maintenance</html>"), nil)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.SchoolsCategory, "E3", mock.Anything).Return(nil, false)

		_, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E3")
		assert.ErrorIs(t, err, contract.ErrTransient)
		assert.True(t, IsUnknown(err))
		cache.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("undecodable cache entry is replaced", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.SchoolsCategory)
		inner.On("Fetch", ctx, "E3").Return(payload, nil).Once()
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.SchoolsCategory, "E3", mock.Anything).Return([]byte("<html>"), true)
		cache.On("Invalidate", ctx, schema.SchoolsCategory, "E3").Return(true, nil).Once()
		cache.On("Write", ctx, schema.SchoolsCategory, "E3", payload).Return(nil).Once()

		got, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E3")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		cache.AssertExpectations(t)
		inner.AssertExpectations(t)
	})

	t.Run("write failure still returns the payload", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		inner.On("Category").Return(schema.CrimeCategory)
		inner.On("Fetch", ctx, "E2").Return(payload, nil)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.CrimeCategory, "E2", mock.Anything).Return(nil, false)
		cache.On("Write", ctx, schema.CrimeCategory, "E2", payload).Return(errors.New("disk full"))

		got, err := NewCachedFetcher(inner, cache).Fetch(ctx, "E2")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("nil cache returns the inner fetcher", func(t *testing.T) {
		inner := new(contract.MockFetcher)
		assert.Same(t, inner, NewCachedFetcher(inner, nil))
	})
}

func TestIsUnknown(t *testing.T) {
	assert.True(t, IsUnknown(contract.ErrNotFound))
	assert.True(t, IsUnknown(contract.ErrTransient))
	assert.False(t, IsUnknown(contract.ErrConfiguration))
	assert.False(t, IsUnknown(errors.New("boom")))
}
