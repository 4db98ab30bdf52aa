package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "index.html", "<html></html>"))

	data, err := os.ReadFile(store.Path("index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	got, err := store.Load(ctx, "index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", got)
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	store := NewFileStore(dir)

	require.NoError(t, store.Save(context.Background(), "styles.css", "body{margin:0;}"))
	assert.DirExists(t, dir)

	// Existing directory is fine.
	require.NoError(t, store.Save(context.Background(), "other.css", ""))
}

func TestFileStore_Overwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "styles.css", "body { margin: 0; padding: 0; color: red; }"))
	require.NoError(t, store.Save(ctx, "styles.css", "p{}"))

	got, err := store.Load(ctx, "styles.css")
	require.NoError(t, err)
	assert.Equal(t, "p{}", got, "previous contents must be truncated")
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load(context.Background(), "missing.html")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestFileStore_CanceledContext(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewFileStore(dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Save(ctx, "index.html", "x"), context.Canceled)
	assert.NoDirExists(t, dir)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "index.html")
	require.ErrorIs(t, err, ErrArtifactNotFound)

	require.NoError(t, store.Save(ctx, "styles.css", "a"))
	require.NoError(t, store.Save(ctx, "index.html", "b"))
	require.NoError(t, store.Save(ctx, "styles.css", "c"))

	got, err := store.Load(ctx, "styles.css")
	require.NoError(t, err)
	assert.Equal(t, "c", got)
	assert.Equal(t, []string{"index.html", "styles.css"}, store.Names())
	assert.Equal(t, 3, store.Saves())
}
