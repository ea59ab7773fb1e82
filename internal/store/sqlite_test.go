package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-bell/internal/store"
	"github.com/nhle/notification-bell/tests/testutil"
)

func TestSQLiteStoreItems(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetItem(ctx, "phone")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetItem(ctx, "phone", "9999999999"))
	got, err := s.GetItem(ctx, "phone")
	require.NoError(t, err)
	assert.Equal(t, "9999999999", got)

	require.NoError(t, s.SetItem(ctx, "phone", "8888888888"))
	got, err = s.GetItem(ctx, "phone")
	require.NoError(t, err)
	assert.Equal(t, "8888888888", got)

	require.NoError(t, s.RemoveItem(ctx, "phone"))
	_, err = s.GetItem(ctx, "phone")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Removing twice is fine.
	assert.NoError(t, s.RemoveItem(ctx, "phone"))
}

func TestSQLiteStoreReopenKeepsMigrations(t *testing.T) {
	path := t.TempDir() + "/bell.db"

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetItem(context.Background(), "k", "v"))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetItem(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
