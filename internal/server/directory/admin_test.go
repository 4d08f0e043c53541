package directory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/nautilus/internal/server/storage/memory"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	d, store := setupDirectory(t)

	admin, err := d.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow, admin.CreatedAt)

	raw, err := store.Get(ctx, keyAdmin)
	require.NoError(t, err)

	// повторный вызов не пересоздаёт запись
	again, err := d.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.PinHash, again.PinHash)

	rawAgain, err := store.Get(ctx, keyAdmin)
	require.NoError(t, err)
	assert.Equal(t, raw, rawAgain)

	ok, err := d.VerifyAdminPin(ctx, DefaultAdminPin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.VerifyAdminPin(ctx, "1111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureAdmin_CustomDefaultPin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), WithDefaultAdminPin("4455"))

	ok, err := d.VerifyAdminPin(ctx, "4455")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.VerifyAdminPin(ctx, DefaultAdminPin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureAdmin_SharedStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first := New(store, logger)
	second := New(store, logger, WithDefaultAdminPin("9999"))

	a, err := first.EnsureAdmin(ctx)
	require.NoError(t, err)
	b, err := second.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.PinHash, b.PinHash)
}

func TestChangeAdminPin(t *testing.T) {
	ctx := context.Background()
	d, _ := setupDirectory(t)

	err := d.ChangeAdminPin(ctx, "1111", "2222")
	assert.ErrorIs(t, err, ErrAuthentication)

	err = d.ChangeAdminPin(ctx, DefaultAdminPin, "22")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, d.ChangeAdminPin(ctx, DefaultAdminPin, "2222"))

	ok, err := d.VerifyAdminPin(ctx, "2222")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.VerifyAdminPin(ctx, DefaultAdminPin)
	require.NoError(t, err)
	assert.False(t, ok)
}
