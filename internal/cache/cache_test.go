package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client), mr
}

func TestStoreSetGetDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	key := LoanListKey(7)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, []byte(`[{"id":1}]`), LoanListTTL))

	data, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"id":1}]`), data)

	require.NoError(t, s.Delete(ctx, key))

	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEntryExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	key := LoanListKey(7)

	require.NoError(t, s.Set(ctx, key, []byte("snapshot"), LoanListTTL))

	mr.FastForward(LoanListTTL + time.Second)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot should expire after its TTL")
}

func TestStoreDeleteNoKeys(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background()))
}

func TestKeysAreUserScoped(t *testing.T) {
	assert.Equal(t, "loans:user:42", LoanListKey(42))
	assert.Equal(t, "transactions:user:42", StatementKey(42))
	assert.NotEqual(t, LoanListKey(1), LoanListKey(2))
}
