package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/condenser/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "storage.toml")
	config := viper.New()
	config.Set(StoragePathKey, path)

	store, err := NewStore(config)
	require.NoError(t, err)
	return store, path
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, path := newTestStore(t)

	require.NoError(t, store.Put(ctx, "uhC0kRain", `{"associationsCount":3}`))
	require.NoError(t, store.Put(ctx, "associationsNotified#uhC0kRain", "3"))

	got, err := store.Get(ctx, "uhC0kRain")
	require.NoError(t, err)
	assert.Equal(t, `{"associationsCount":3}`, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(storageFileMode), info.Mode().Perm())

	reopened, err := NewStoreAt(path)
	require.NoError(t, err)
	got, err = reopened.Get(ctx, "associationsNotified#uhC0kRain")
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestStoreGetMissingKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreDeleteAndKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, key := range []string{"notificationSettings#b", "notificationSettings#a", "uhC0kRain"} {
		require.NoError(t, store.Put(ctx, key, "x"))
	}

	keys, err := store.Keys(ctx, "notificationSettings#")
	require.NoError(t, err)
	assert.Equal(t, []string{"notificationSettings#a", "notificationSettings#b"}, keys)

	require.NoError(t, store.Delete(ctx, "notificationSettings#a"))
	require.NoError(t, store.Delete(ctx, "notificationSettings#a"))

	keys, err = store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"notificationSettings#b", "uhC0kRain"}, keys)
}

func TestStoreRejectsFutureSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "storage.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"version = 99",
		"",
		"[entries]",
		"a = \"b\"",
	}, "\n")), 0o600))

	store, err := NewStoreAt(path)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported storage schema version 99")
}

func TestStoreContextCanceled(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, "a", "b"), context.Canceled)
	_, err := store.Get(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreConcurrentWritersSharingPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, path := newTestStore(t)
	other, err := NewStoreAt(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := store
			if i%2 == 1 {
				target = other
			}
			assert.NoError(t, target.Put(ctx, "k"+strconv.Itoa(i), strconv.Itoa(i)))
		}(i)
	}
	wg.Wait()

	keys, err := store.Keys(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, keys, 20)
}
