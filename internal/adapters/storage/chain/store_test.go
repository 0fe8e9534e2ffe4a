package chain

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bnema/condenser/internal/domain"
	portmocks "github.com/bnema/condenser/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const ledgerKey = "uhC0kRain"

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, ledgerKey).Return("from-toml", nil).Once()

	value, err := store.Get(context.Background(), ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, "from-toml", value)
}

func TestStoreGetFallsBackWhenPrimaryMisses(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, ledgerKey).Return("", domain.ErrKeyNotFound).Once()
	fallback.EXPECT().Get(mock.Anything, ledgerKey).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetKeepsNotFoundWhenBothMiss(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, ledgerKey).Return("", domain.ErrKeyNotFound).Once()
	fallback.EXPECT().Get(mock.Anything, ledgerKey).Return("", domain.ErrKeyNotFound).Once()

	_, err := store.Get(context.Background(), ledgerKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, ledgerKey).Return("", errors.New("toml failed")).Once()
	fallback.EXPECT().Get(mock.Anything, ledgerKey).Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), ledgerKey)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "toml failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreSkipsFallbackOnContextErrors(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, ledgerKey, "v").Return(context.Canceled).Once()

	err := store.Put(context.Background(), ledgerKey, "v")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, ledgerKey, "v").Return(errors.New("read-only")).Once()
	fallback.EXPECT().Put(mock.Anything, ledgerKey, "v").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), ledgerKey, "v"))
}

func TestStoreDeleteClearsBothBackends(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Delete(mock.Anything, ledgerKey).Return(nil).Once()
	fallback.EXPECT().Delete(mock.Anything, ledgerKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), ledgerKey))
}

func TestStoreKeysMergesBackends(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Keys(mock.Anything, "").Return([]string{"b", "a"}, nil).Once()
	fallback.EXPECT().Keys(mock.Anything, "").Return([]string{"c", "a"}, nil).Once()

	keys, err := store.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestNewStoreCheckedRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, portmocks.NewMockKeyValueStore(t))
	assert.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStoreChecked(portmocks.NewMockKeyValueStore(t), nil)
	assert.ErrorIs(t, err, errNilFallbackStore)
}

func TestTOMLFirstReadsLegacyFileEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewTOMLFirstWithFileFallback(filepath.Join(dir, "storage.toml"), filepath.Join(dir, "storage.d"))
	require.NoError(t, err)

	require.NoError(t, store.fallback.Put(ctx, ledgerKey, "legacy"))

	value, err := store.Get(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, "legacy", value)

	require.NoError(t, store.Put(ctx, ledgerKey, "current"))
	value, err = store.Get(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, "current", value)

	require.NoError(t, store.Delete(ctx, ledgerKey))
	_, err = store.Get(ctx, ledgerKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
