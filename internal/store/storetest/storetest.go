// Package storetest holds the behaviour every store.KV backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty KV. The suite closes it.
type Factory func(t *testing.T) store.KV

func Run(t *testing.T, open Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()

		_, err := kv.Get(context.Background(), []byte("missing"))
		require.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)

		ok, err := kv.Has(context.Background(), []byte("missing"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("SetGet", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, store.InstanceKey(), []byte(`{"admin":"a"}`)))
		got, err := kv.Get(ctx, store.InstanceKey())
		require.NoError(t, err)
		require.Equal(t, []byte(`{"admin":"a"}`), got)

		ok, err := kv.Has(ctx, store.InstanceKey())
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, kv.Set(ctx, store.InstanceKey(), []byte("v2")))
		got, err = kv.Get(ctx, store.InstanceKey())
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), got)
	})

	t.Run("BinaryKeys", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		ctx := context.Background()

		var id models.RemittanceID
		id[0], id[31] = 0x00, 0xff
		require.NoError(t, kv.Set(ctx, store.RemittanceKey(id), []byte("record")))

		got, err := kv.Get(ctx, store.RemittanceKey(id))
		require.NoError(t, err)
		require.Equal(t, []byte("record"), got)

		var other models.RemittanceID
		other[31] = 0xfe
		_, err = kv.Get(ctx, store.RemittanceKey(other))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CommitBatch", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		ctx := context.Background()

		batch := store.NewBatch()
		batch.Set(store.InstanceKey(), []byte("instance"))
		batch.Set(store.UserStatsKey("alice"), []byte("stats"))
		batch.Set(store.UserStatsKey("alice"), []byte("stats-2"))
		require.NoError(t, kv.Commit(ctx, batch))

		got, err := kv.Get(ctx, store.InstanceKey())
		require.NoError(t, err)
		require.Equal(t, []byte("instance"), got)

		got, err = kv.Get(ctx, store.UserStatsKey("alice"))
		require.NoError(t, err)
		require.Equal(t, []byte("stats-2"), got, "later ops in a batch win")
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		require.NoError(t, kv.Commit(context.Background(), store.NewBatch()))
	})

	t.Run("GuardedCommit", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		ctx := context.Background()

		key := store.UserStatsKey("alice")
		require.NoError(t, kv.Set(ctx, key, []byte("v1")))

		batch := store.NewBatch()
		batch.Expect(key, []byte("v1"))
		batch.ExpectAbsent(store.InstanceKey())
		batch.Set(key, []byte("v2"))
		require.NoError(t, kv.Commit(ctx, batch))

		got, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), got)
	})

	t.Run("StaleGuardWritesNothing", func(t *testing.T) {
		kv := open(t)
		defer kv.Close()
		ctx := context.Background()

		key := store.UserStatsKey("alice")
		require.NoError(t, kv.Set(ctx, key, []byte("v2")))

		batch := store.NewBatch()
		batch.Expect(key, []byte("v1"))
		batch.Set(key, []byte("lost"))
		batch.Set(store.InstanceKey(), []byte("instance"))
		err := kv.Commit(ctx, batch)
		require.ErrorIs(t, err, store.ErrConcurrentModification)

		got, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), got)
		ok, err := kv.Has(ctx, store.InstanceKey())
		require.NoError(t, err)
		require.False(t, ok, "a failed guard must not apply any op")

		batch = store.NewBatch()
		batch.ExpectAbsent(key)
		batch.Set(key, []byte("overwrite"))
		require.ErrorIs(t, kv.Commit(ctx, batch), store.ErrConcurrentModification)

		batch = store.NewBatch()
		batch.Expect(store.InstanceKey(), []byte("instance"))
		batch.Set(store.InstanceKey(), []byte("instance-2"))
		require.ErrorIs(t, kv.Commit(ctx, batch), store.ErrConcurrentModification,
			"expecting a value on a missing key fails")
	})
}
