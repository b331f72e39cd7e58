package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmypdf/internal/config"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory":     NewMemoryStore(),
		"filesystem": fs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			content := "%PDF-1.4 " + strings.Repeat("x", 4096)
			require.NoError(t, store.Put(ctx, "user-1/doc-1", strings.NewReader(content), int64(len(content))))

			var buf bytes.Buffer
			require.NoError(t, store.Get(ctx, "user-1/doc-1", &buf))
			assert.Equal(t, content, buf.String())

			require.NoError(t, store.Delete(ctx, "user-1/doc-1"))
			require.NoError(t, store.Delete(ctx, "user-1/doc-1"))

			err := store.Get(ctx, "user-1/doc-1", &buf)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreSizeMismatch(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Put(ctx, "k", strings.NewReader("abc"), 10)
			assert.Error(t, err)

			var buf bytes.Buffer
			assert.ErrorIs(t, store.Get(ctx, "k", &buf), ErrNotFound)
		})
	}
}

func TestFileSystemStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside", "/etc/passwd", ".."} {
		err := store.Put(context.Background(), key, strings.NewReader("x"), 1)
		assert.Error(t, err, key)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	store, err := NewFromConfig(ctx, config.BlobConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewFromConfig(ctx, config.BlobConfig{Driver: "filesystem", Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileSystemStore{}, store)

	_, err = NewFromConfig(ctx, config.BlobConfig{Driver: "filesystem"})
	assert.Error(t, err)

	_, err = NewFromConfig(ctx, config.BlobConfig{Driver: "tape"})
	assert.Error(t, err)
}
