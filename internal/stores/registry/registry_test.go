package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{ code store.Code }

func (s stubStore) Code() store.Code { return s.code }
func (s stubStore) Snapshot(ctx context.Context, req store.SnapshotRequest) (*store.Snapshot, error) {
	return &store.Snapshot{Source: req.Source}, nil
}
func (s stubStore) SearchAndSelect(ctx context.Context, query string) (*store.Product, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubStore{code: store.CodePaknsave})

	built := 0
	r.RegisterFactory(store.CodeNewWorld, func() (store.Store, error) {
		built++
		return stubStore{code: store.CodeNewWorld}, nil
	})
	r.RegisterFactory(store.CodeCountdown, func() (store.Store, error) {
		return nil, errors.New("no token")
	})

	assert.Equal(t, []store.Code{store.CodeCountdown, store.CodeNewWorld, store.CodePaknsave}, r.List())
	assert.True(t, r.IsRegistered(store.CodeNewWorld))
	assert.False(t, r.IsRegistered(store.CodeGrocer))

	s, err := r.Get(store.CodePaknsave)
	require.NoError(t, err)
	assert.Equal(t, store.CodePaknsave, s.Code())

	for i := 0; i < 2; i++ {
		s, err = r.Get(store.CodeNewWorld)
		require.NoError(t, err)
		assert.Equal(t, store.CodeNewWorld, s.Code())
	}
	assert.Equal(t, 1, built)

	_, err = r.Get(store.CodeCountdown)
	assert.Error(t, err)

	_, err = r.Get(store.CodeGrocer)
	assert.Error(t, err)
}
