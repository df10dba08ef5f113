package leveldb

import (
	"context"
	"testing"

	"remittance-escrow-go/internal/store"
	"remittance-escrow-go/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

func TestLevelDBStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.KV {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestLevelDBStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.UserStatsKey("alice"), []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, store.UserStatsKey("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
}
