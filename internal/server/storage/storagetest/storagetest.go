// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/nautilus/internal/server/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run executes the conformance suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"get missing key", testGetMissing},
		{"put and get", testPutGet},
		{"put overwrites", testPutOverwrites},
		{"put if absent", testPutIfAbsent},
		{"delete", testDelete},
		{"keys by prefix", testKeys},
		{"returned value is a copy", testValueCopy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() {
				require.NoError(t, s.Close())
			}()
			tt.fn(t, s)
		})
	}
}

func testGetMissing(t *testing.T, s storage.Store) {
	value, err := s.Get(context.Background(), "user:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Nil(t, value)
}

func testPutGet(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "user:1", []byte(`{"id":"1"}`)))

	value, err := s.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(value))
}

func testPutOverwrites(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "admin:master", []byte("first")))
	require.NoError(t, s.Put(ctx, "admin:master", []byte("second")))

	value, err := s.Get(ctx, "admin:master")
	require.NoError(t, err)
	assert.Equal(t, "second", string(value))
}

func testPutIfAbsent(t *testing.T, s storage.Store) {
	ctx := context.Background()

	ok, err := s.PutIfAbsent(ctx, "user:username:moony", []byte("id-1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.PutIfAbsent(ctx, "user:username:moony", []byte("id-2"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Значение первого писателя сохраняется
	value, err := s.Get(ctx, "user:username:moony")
	require.NoError(t, err)
	assert.Equal(t, "id-1", string(value))
}

func testDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "user:1", []byte("x")))
	require.NoError(t, s.Delete(ctx, "user:1"))

	_, err := s.Get(ctx, "user:1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Повторное удаление не ошибка
	assert.NoError(t, s.Delete(ctx, "user:1"))

	// После удаления ключ снова можно занять условной записью
	ok, err := s.PutIfAbsent(ctx, "user:1", []byte("y"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func testKeys(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for _, key := range []string{
		"user:username:zed",
		"user:username:amy",
		"user:email:amy@example.com",
		"user:abc",
		"admin:master",
	} {
		require.NoError(t, s.Put(ctx, key, []byte("v")))
	}

	keys, err := s.Keys(ctx, "user:username:")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:username:amy", "user:username:zed"}, keys)

	keys, err = s.Keys(ctx, "user:")
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	keys, err = s.Keys(ctx, "missing:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"admin:master",
		"user:abc",
		"user:email:amy@example.com",
		"user:username:amy",
		"user:username:zed",
	}, all)
}

func testValueCopy(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("abc")))

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
