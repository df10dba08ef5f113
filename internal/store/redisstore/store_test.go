package redisstore

import (
	"context"
	"os"
	"strconv"
	"testing"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"
	"remittance-escrow-go/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

// Runs against a live Redis only when REDIS_TEST_ADDR is set. Each subtest
// flushes the selected database, so point it at a scratch instance.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_TEST_DB"))

	storetest.Run(t, func(t *testing.T) store.KV {
		s, err := NewStore(context.Background(), models.RedisConfig{Addr: addr, DB: db})
		require.NoError(t, err)
		require.NoError(t, s.client.FlushDB(context.Background()).Err())
		return s
	})
}

func TestRedisKeyIsPrefixed(t *testing.T) {
	require.Equal(t, "remittance:\x02alice", redisKey(store.UserStatsKey("alice")))
}
