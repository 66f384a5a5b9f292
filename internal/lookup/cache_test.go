package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticLoad(entries ...Entry) LoadFunc {
	return func(ctx context.Context) ([]Entry, error) {
		return entries, nil
	}
}

func TestCacheIDIgnoresCase(t *testing.T) {
	c := New("location", staticLoad(Entry{ID: 1, Name: "Fridge"}, Entry{ID: 2, Name: "Pantry"}))

	id, err := c.ID(context.Background(), "fridge")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = c.ID(context.Background(), " PANTRY ")
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	name, ok, err := c.Name(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Pantry", name)
}

func TestCacheMissingWithoutCreate(t *testing.T) {
	c := New("location", staticLoad(Entry{ID: 1, Name: "Fridge"}))

	_, err := c.ID(context.Background(), "Garage")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Garage")
}

func TestCacheLoadError(t *testing.T) {
	c := New("location", func(ctx context.Context) ([]Entry, error) {
		return nil, errors.New("boom")
	})

	_, err := c.ID(context.Background(), "Fridge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load location")
	assert.False(t, errors.Is(err, ErrNotFound))
}

// TestCacheCreatesMissingOnce verifies that concurrent lookups of the same
// missing name create it exactly once.
func TestCacheCreatesMissingOnce(t *testing.T) {
	var creates int32
	c := New("product group", staticLoad(), WithCreate(func(ctx context.Context, name string) (int, error) {
		atomic.AddInt32(&creates, 1)
		time.Sleep(20 * time.Millisecond)
		return 42, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := c.ID(context.Background(), "Dairy")
			assert.NoError(t, err)
			assert.Equal(t, 42, id)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&creates))

	name, ok, err := c.Name(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dairy", name)
}
